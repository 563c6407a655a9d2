package transcript

import "strings"

// SelectTrack chooses the single best track from a catalog given an
// ordered language preference list. Pure and deterministic: no I/O, and
// identical inputs always yield the identical track.
//
// Policy: walk the preference list in order; within a preferred language
// a manual track beats an auto-generated one. If no preferred language
// matches, fall back to the first manual track in catalog order, else the
// first auto-generated track. Ties within identical language+kind resolve
// by catalog order.
func SelectTrack(catalog TrackCatalog, preferred []LanguageCode) (CaptionTrack, error) {
	if len(catalog) == 0 {
		return CaptionTrack{}, ErrNoMatchingTrack
	}

	for _, lang := range preferred {
		if t, ok := firstTrack(catalog, lang, TrackKindManual); ok {
			return t, nil
		}
		if t, ok := firstTrack(catalog, lang, TrackKindAuto); ok {
			return t, nil
		}
	}

	// No preferred language matched: first manual wins, then first auto.
	for _, t := range catalog {
		if t.Kind == TrackKindManual {
			return t, nil
		}
	}
	for _, t := range catalog {
		if t.Kind == TrackKindAuto {
			return t, nil
		}
	}

	return CaptionTrack{}, ErrNoMatchingTrack
}

// firstTrack returns the first track in catalog order with the given
// language (case-insensitive) and kind.
func firstTrack(catalog TrackCatalog, lang LanguageCode, kind TrackKind) (CaptionTrack, bool) {
	for _, t := range catalog {
		if t.Kind == kind && strings.EqualFold(string(t.Language), string(lang)) {
			return t, true
		}
	}
	return CaptionTrack{}, false
}
