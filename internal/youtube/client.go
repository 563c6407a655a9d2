// Package youtube implements the upstream side of the transcript
// pipeline: listing caption tracks through the innertube player endpoint
// and downloading raw caption payloads from track base URLs.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"ytt/internal/transcript"
)

const (
	defaultBaseURL       = "https://www.youtube.com"
	playerEndpointPath   = "/youtubei/v1/player"
	innertubeClient      = "ANDROID"
	innertubeVersion     = "20.10.38"
	defaultAttemptTO     = 10 * time.Second
	defaultLimiterWait   = 5 * time.Second
	defaultMaxAttempts   = 3
	defaultBackoffFirst  = 500 * time.Millisecond
	defaultBackoffCeil   = 10 * time.Second
)

// Config carries the tunables for the upstream client. Zero values fall
// back to the defaults above; BaseURL is overridable so tests can point
// the client at an httptest server.
type Config struct {
	BaseURL        string
	HTTPClient     *http.Client
	Limiter        *rate.Limiter
	CaptionFormat  transcript.PayloadFormat
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	AttemptTimeout time.Duration
	LimiterWait    time.Duration
}

// Client talks to the captioning upstream. It implements both
// transcript.CatalogResolver and transcript.CaptionFetcher.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient constructs a Client. The limiter is shared process-wide state:
// pass the same instance to every component that talks upstream.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.CaptionFormat == "" {
		cfg.CaptionFormat = transcript.FormatJSON3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = defaultBackoffFirst
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffCeil
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTO
	}
	if cfg.LimiterWait <= 0 {
		cfg.LimiterWait = defaultLimiterWait
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(2), 4)
	}

	return &Client{cfg: cfg, http: httpClient, limiter: limiter, log: log}
}

// playerRequest is the innertube player call body. Only the fields the
// endpoint requires to return the caption track list.
type playerRequest struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
		} `json:"client"`
	} `json:"context"`
	VideoID string `json:"videoId"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	// Pointer so "captions disabled" (field absent) is distinguishable
	// from "zero tracks listed".
	Captions *struct {
		Renderer struct {
			CaptionTracks []captionTrackJSON `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrackJSON struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" marks auto-generated tracks
	Name         struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
}

// ResolveTracks implements transcript.CatalogResolver. The catalog
// endpoint is cheap relative to a full fetch, so results are not cached
// here; caching happens at the transcript level.
func (c *Client) ResolveTracks(ctx context.Context, videoID transcript.VideoID) (transcript.TrackCatalog, error) {
	var reqBody playerRequest
	reqBody.Context.Client.ClientName = innertubeClient
	reqBody.Context.Client.ClientVersion = innertubeVersion
	reqBody.VideoID = string(videoID)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal player request: %w", err)
	}

	body, err := c.doWithRetry(ctx, false, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+playerEndpointPath, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve tracks %s: %w", videoID, err)
	}

	var pr playerResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("resolve tracks %s: decode player response: %w", videoID, transcript.ErrUpstreamUnavailable)
	}

	if pr.PlayabilityStatus.Status == "ERROR" {
		return nil, fmt.Errorf("%w: video %s: %s", transcript.ErrNotFound, videoID, pr.PlayabilityStatus.Reason)
	}
	if pr.Captions == nil {
		return nil, fmt.Errorf("%w: video %s has captions disabled", transcript.ErrNotFound, videoID)
	}

	catalog := make(transcript.TrackCatalog, 0, len(pr.Captions.Renderer.CaptionTracks))
	for _, t := range pr.Captions.Renderer.CaptionTracks {
		catalog = append(catalog, transcript.CaptionTrack{
			Language:  transcript.LanguageCode(t.LanguageCode),
			Name:      trackName(t),
			Kind:      trackKind(t.Kind),
			SourceURL: c.captionURL(t.BaseURL),
			Format:    c.cfg.CaptionFormat,
		})
	}

	c.log.Debug("resolved caption tracks",
		slog.String("video_id", string(videoID)),
		slog.Int("tracks", len(catalog)))
	return catalog, nil
}

// FetchCaptions implements transcript.CaptionFetcher. Every attempt,
// including retries, consumes one limiter token.
func (c *Client) FetchCaptions(ctx context.Context, track transcript.CaptionTrack) (transcript.RawCaptionPayload, error) {
	body, err := c.doWithRetry(ctx, true, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, track.SourceURL, nil)
	})
	if err != nil {
		return transcript.RawCaptionPayload{}, fmt.Errorf("fetch captions %s/%s: %w", track.Language, track.Kind, err)
	}

	c.log.Debug("fetched caption payload",
		slog.String("language", string(track.Language)),
		slog.String("kind", string(track.Kind)),
		slog.Int("bytes", len(body)))
	return transcript.RawCaptionPayload{Format: track.Format, Body: body}, nil
}

// captionURL appends the requested wire format to a track base URL. The
// declared format tag on the resulting payload comes from this request,
// never from sniffing the response body.
func (c *Client) captionURL(baseURL string) string {
	if c.cfg.CaptionFormat != transcript.FormatJSON3 {
		return baseURL // bare base URL serves the legacy timedtext markup
	}
	sep := "?"
	if u, err := url.Parse(baseURL); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return baseURL + sep + "fmt=json3"
}

func trackKind(kind string) transcript.TrackKind {
	if kind == "asr" {
		return transcript.TrackKindAuto
	}
	return transcript.TrackKindManual
}

func trackName(t captionTrackJSON) string {
	if t.Name.SimpleText != "" {
		return t.Name.SimpleText
	}
	var b []byte
	for _, run := range t.Name.Runs {
		b = append(b, run.Text...)
	}
	return string(b)
}
