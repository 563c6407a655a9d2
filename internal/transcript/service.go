package transcript

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"ytt/internal/platform/metrics"
)

// DefaultPipelineTimeout bounds one full resolve-select-fetch-parse chain.
const DefaultPipelineTimeout = 30 * time.Second

// CatalogResolver lists the caption tracks available for a video.
// Returns ErrNotFound when the video does not exist or captions are
// disabled entirely; an empty catalog is a valid non-error result.
type CatalogResolver interface {
	ResolveTracks(ctx context.Context, videoID VideoID) (TrackCatalog, error)
}

// CaptionFetcher retrieves the raw payload for a chosen track, applying
// the shared rate limit and retry policy.
type CaptionFetcher interface {
	FetchCaptions(ctx context.Context, track CaptionTrack) (RawCaptionPayload, error)
}

// Service is the pipeline orchestrator and the sole entry point for the
// HTTP layer. It composes cache lookup, single-flight deduplication, and
// the resolve-select-fetch-parse chain, and propagates the five error
// kinds unchanged.
type Service struct {
	resolver CatalogResolver
	fetcher  CaptionFetcher
	cache    *TranscriptCache
	group    singleflight.Group

	defaultLanguages []LanguageCode
	timeout          time.Duration
	metrics          *metrics.Metrics
}

// NewService wires the orchestrator. defaultLanguages is used when a
// request carries no preference list; timeout <= 0 falls back to
// DefaultPipelineTimeout. Metrics may be nil to disable recording
// (e.g. in tests).
func NewService(resolver CatalogResolver, fetcher CaptionFetcher, cache *TranscriptCache, defaultLanguages []LanguageCode, timeout time.Duration, m *metrics.Metrics) *Service {
	if timeout <= 0 {
		timeout = DefaultPipelineTimeout
	}
	return &Service{
		resolver:         resolver,
		fetcher:          fetcher,
		cache:            cache,
		defaultLanguages: NormalizeLanguages(defaultLanguages),
		timeout:          timeout,
		metrics:          m,
	}
}

// GetTranscript returns the transcript for videoID under the given
// language preference list. Concurrent calls for the same
// (video, preferences) key share one upstream computation; completed
// transcripts are cached, failures are not.
//
// If ctx is cancelled while waiting, this caller abandons the wait but
// the in-flight computation keeps running for the other waiters.
func (s *Service) GetTranscript(ctx context.Context, videoID VideoID, preferred []LanguageCode) (Transcript, error) {
	langs := NormalizeLanguages(preferred)
	if len(langs) == 0 {
		langs = s.defaultLanguages
	}
	key := CacheKey(videoID, langs)

	if t, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.IncCacheHit()
		}
		return t, nil
	}
	if s.metrics != nil {
		s.metrics.IncCacheMiss()
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.compute(videoID, langs, key)
	})

	select {
	case <-ctx.Done():
		return Transcript{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Transcript{}, res.Err
		}
		return res.Val.(Transcript), nil
	}
}

// compute runs the full chain once per single-flight key. It is
// deliberately detached from any individual caller's context: the only
// deadline is the pipeline ceiling, so one disconnecting client cannot
// cancel a result other waiters are blocked on.
func (s *Service) compute(videoID VideoID, langs []LanguageCode, key string) (Transcript, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// A previous flight for this key may have finished and cached between
	// our lookup and this call.
	if t, ok := s.cache.Get(key); ok {
		return t, nil
	}

	if s.metrics != nil {
		s.metrics.IncUpstreamRequest()
	}

	catalog, err := s.resolver.ResolveTracks(ctx, videoID)
	if err != nil {
		return Transcript{}, s.deadline(ctx, err)
	}

	track, err := SelectTrack(catalog, langs)
	if err != nil {
		return Transcript{}, err
	}

	payload, err := s.fetcher.FetchCaptions(ctx, track)
	if err != nil {
		return Transcript{}, s.deadline(ctx, err)
	}

	segments, err := Parse(payload)
	if err != nil {
		return Transcript{}, err
	}

	t := Transcript{VideoID: videoID, Language: track.Language, Segments: segments}
	s.cache.Put(key, t)
	return t, nil
}

// deadline folds a pipeline-ceiling expiry into the error taxonomy: the
// orchestrator's overall timeout surfaces as ErrUpstreamUnavailable.
func (s *Service) deadline(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: pipeline deadline (%s) exceeded: %v", ErrUpstreamUnavailable, s.timeout, err)
	}
	return err
}
