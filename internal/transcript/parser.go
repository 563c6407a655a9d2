package transcript

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"
)

// Parse converts a raw caption payload into a normalized, ordered segment
// sequence. The format is taken from the payload's declared tag, never
// sniffed from content. Adding a format means adding a case here and a
// constant in models.go.
func Parse(payload RawCaptionPayload) ([]Segment, error) {
	var cues []Segment
	var err error

	switch payload.Format {
	case FormatTimedText:
		cues, err = parseTimedText(payload.Body)
	case FormatJSON3:
		cues, err = parseJSON3(payload.Body)
	default:
		return nil, fmt.Errorf("%w: unknown format tag %q", ErrMalformedPayload, payload.Format)
	}
	if err != nil {
		return nil, err
	}

	return normalizeCues(cues)
}

// timedTextDoc mirrors the legacy XML markup:
// <transcript><text start="0.0" dur="2.5">Hi there</text></transcript>.
// innerxml is used (not chardata) so embedded styling tags reach
// parseTimedText intact, which strips them.
type timedTextDoc struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",innerxml"`
	} `xml:"text"`
}

func parseTimedText(body []byte) ([]Segment, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: timedtext: %v", ErrMalformedPayload, err)
	}

	cues := make([]Segment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		start, err := strconv.ParseFloat(t.Start, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: timedtext: bad start attr %q", ErrMalformedPayload, t.Start)
		}
		// dur may be absent on the last cue; that is a zero-length segment.
		dur := 0.0
		if t.Dur != "" {
			dur, err = strconv.ParseFloat(t.Dur, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: timedtext: bad dur attr %q", ErrMalformedPayload, t.Dur)
			}
		}
		// Markup stripping happens here, not in the shared normalization:
		// only the timedtext innerxml carries styling tags, and a literal
		// "<" in another format's cue text is content, not markup.
		cues = append(cues, Segment{Start: start, Duration: dur, Text: stripTags(t.Body)})
	}
	return cues, nil
}

// json3Doc mirrors the structured JSON variant. Events without segs are
// window metadata and carry no text; seg utf8 fragments concatenate into
// the cue text.
type json3Doc struct {
	Events []struct {
		TStartMs    *int64 `json:"tStartMs"`
		DDurationMs *int64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(body []byte) ([]Segment, error) {
	var doc json3Doc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: json3: %v", ErrMalformedPayload, err)
	}

	cues := make([]Segment, 0, len(doc.Events))
	for _, ev := range doc.Events {
		if len(ev.Segs) == 0 || ev.TStartMs == nil {
			continue
		}
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		dur := 0.0
		if ev.DDurationMs != nil {
			dur = float64(*ev.DDurationMs) / 1000
		}
		cues = append(cues, Segment{
			Start:    float64(*ev.TStartMs) / 1000,
			Duration: dur,
			Text:     b.String(),
		})
	}
	return cues, nil
}

// normalizeCues applies the shared normalization rules: clean each cue's
// text, drop cues that end up empty, merge consecutive cues with an
// identical start offset, and enforce that start offsets never decrease.
// A regression in offsets is a data-integrity failure, not something to
// paper over with sorting.
func normalizeCues(cues []Segment) ([]Segment, error) {
	out := make([]Segment, 0, len(cues))
	for _, c := range cues {
		if c.Duration < 0 {
			return nil, fmt.Errorf("%w: negative duration at %.3fs", ErrMalformedPayload, c.Start)
		}

		text := cleanCueText(c.Text)
		if text == "" {
			continue
		}

		if n := len(out); n > 0 {
			prev := &out[n-1]
			if c.Start == prev.Start {
				// Duplicate cue: concatenate with a single space.
				prev.Text += " " + text
				if c.Duration > prev.Duration {
					prev.Duration = c.Duration
				}
				continue
			}
			if c.Start < prev.Start {
				return nil, fmt.Errorf("%w: start offset regresses at %.3fs", ErrMalformedPayload, c.Start)
			}
		}

		out = append(out, Segment{Start: c.Start, Duration: c.Duration, Text: text})
	}
	return out, nil
}

// cleanCueText decodes entity escapes and collapses internal whitespace
// (including the \n cue breaks json3 emits).
func cleanCueText(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// stripTags removes <...> runs from timedtext cue markup. Caption markup
// is flat styling (<i>, <b>, <font>), so a scanner is enough; no nesting
// to track.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
