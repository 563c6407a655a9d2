package transcript

import "strings"

// VideoID identifies a YouTube video. It is treated as opaque here;
// syntax validation happens at the HTTP boundary.
type VideoID string

// LanguageCode is a caption language code as reported by the upstream
// catalog (e.g. "en", "fr", "pt-BR"). Comparison is case-insensitive.
type LanguageCode string

// TrackKind distinguishes human-authored captions from machine-generated ones.
type TrackKind string

const (
	TrackKindManual TrackKind = "manual"
	TrackKindAuto   TrackKind = "asr"
)

// PayloadFormat tags the encoding of a raw caption payload. The set is
// closed: the parser dispatches on the tag and rejects anything else.
type PayloadFormat string

const (
	// FormatTimedText is the legacy XML timed-text markup
	// (<transcript><text start dur>...</text></transcript>).
	FormatTimedText PayloadFormat = "timedtext"

	// FormatJSON3 is the structured JSON variant
	// ({"events":[{"tStartMs":...,"segs":[...]}]}).
	FormatJSON3 PayloadFormat = "json3"
)

// CaptionTrack is one available caption stream for a video, as listed by
// the catalog resolver. Read-only after construction.
type CaptionTrack struct {
	Language  LanguageCode
	Name      string
	Kind      TrackKind
	SourceURL string
	Format    PayloadFormat
}

// TrackCatalog is the ordered list of tracks available for one video.
// An empty catalog is a valid state (video exists, no captions), distinct
// from ErrNotFound.
type TrackCatalog []CaptionTrack

// RawCaptionPayload is the undecoded body of a fetched caption track plus
// its declared format tag. It only lives between fetch and parse.
type RawCaptionPayload struct {
	Format PayloadFormat
	Body   []byte
}

// Segment is one timed cue of a transcript. Start and Duration are in
// seconds from the beginning of the video.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Transcript is the normalized result of the pipeline and the unit of
// caching. Immutable once constructed.
type Transcript struct {
	VideoID  VideoID      `json:"videoId"`
	Language LanguageCode `json:"language"`
	Segments []Segment    `json:"segments"`
}

// NormalizeLanguages lowercases and trims a preference list, dropping
// empty entries. Both the cache key and the selector use the normalized
// form so that "EN" and "en" name the same preference.
func NormalizeLanguages(langs []LanguageCode) []LanguageCode {
	out := make([]LanguageCode, 0, len(langs))
	for _, l := range langs {
		s := strings.ToLower(strings.TrimSpace(string(l)))
		if s == "" {
			continue
		}
		out = append(out, LanguageCode(s))
	}
	return out
}
