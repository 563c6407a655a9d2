package transcript

import (
	"errors"
	"testing"
)

func TestSelectTrack_empty_catalog(t *testing.T) {
	_, err := SelectTrack(nil, []LanguageCode{"en"})
	if !errors.Is(err, ErrNoMatchingTrack) {
		t.Errorf("expected ErrNoMatchingTrack, got %v", err)
	}

	_, err = SelectTrack(TrackCatalog{}, nil)
	if !errors.Is(err, ErrNoMatchingTrack) {
		t.Errorf("expected ErrNoMatchingTrack for empty catalog and empty prefs, got %v", err)
	}
}

func TestSelectTrack_manual_beats_auto_in_preferred_language(t *testing.T) {
	catalog := TrackCatalog{
		{Language: "en", Kind: TrackKindAuto, SourceURL: "auto-en"},
		{Language: "en", Kind: TrackKindManual, SourceURL: "manual-en"},
	}

	track, err := SelectTrack(catalog, []LanguageCode{"en"})
	if err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	if track.SourceURL != "manual-en" {
		t.Errorf("expected manual en track, got %q", track.SourceURL)
	}
}

func TestSelectTrack_preference_order_beats_catalog_order(t *testing.T) {
	catalog := TrackCatalog{
		{Language: "de", Kind: TrackKindManual, SourceURL: "manual-de"},
		{Language: "fr", Kind: TrackKindManual, SourceURL: "manual-fr"},
	}

	track, err := SelectTrack(catalog, []LanguageCode{"fr", "de"})
	if err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	if track.SourceURL != "manual-fr" {
		t.Errorf("preference list order should win, got %q", track.SourceURL)
	}
}

func TestSelectTrack_auto_in_preferred_language_beats_manual_fallback(t *testing.T) {
	catalog := TrackCatalog{
		{Language: "de", Kind: TrackKindManual, SourceURL: "manual-de"},
		{Language: "en", Kind: TrackKindAuto, SourceURL: "auto-en"},
	}

	track, err := SelectTrack(catalog, []LanguageCode{"en"})
	if err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	if track.SourceURL != "auto-en" {
		t.Errorf("an exact language match beats any fallback, got %q", track.SourceURL)
	}
}

func TestSelectTrack_fallback_to_first_available(t *testing.T) {
	catalog := TrackCatalog{
		{Language: "fr", Kind: TrackKindAuto, SourceURL: "auto-fr"},
	}

	track, err := SelectTrack(catalog, []LanguageCode{"en", "de"})
	if err != nil {
		t.Fatalf("unmatched preferences should fall back, not fail: %v", err)
	}
	if track.SourceURL != "auto-fr" {
		t.Errorf("expected fallback auto fr track, got %q", track.SourceURL)
	}
}

func TestSelectTrack_fallback_prefers_manual_over_earlier_auto(t *testing.T) {
	catalog := TrackCatalog{
		{Language: "fr", Kind: TrackKindAuto, SourceURL: "auto-fr"},
		{Language: "ja", Kind: TrackKindManual, SourceURL: "manual-ja"},
	}

	track, err := SelectTrack(catalog, []LanguageCode{"en"})
	if err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	if track.SourceURL != "manual-ja" {
		t.Errorf("fallback should pick first manual before any auto, got %q", track.SourceURL)
	}
}

func TestSelectTrack_language_match_is_case_insensitive(t *testing.T) {
	catalog := TrackCatalog{
		{Language: "pt-BR", Kind: TrackKindManual, SourceURL: "manual-pt-br"},
	}

	track, err := SelectTrack(catalog, []LanguageCode{"pt-br"})
	if err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	if track.SourceURL != "manual-pt-br" {
		t.Errorf("case-insensitive match expected, got %q", track.SourceURL)
	}
}

func TestSelectTrack_deterministic(t *testing.T) {
	catalog := TrackCatalog{
		{Language: "en", Kind: TrackKindManual, SourceURL: "a"},
		{Language: "en", Kind: TrackKindManual, SourceURL: "b"},
		{Language: "en", Kind: TrackKindAuto, SourceURL: "c"},
	}
	prefs := []LanguageCode{"en"}

	first, err := SelectTrack(catalog, prefs)
	if err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	second, err := SelectTrack(catalog, prefs)
	if err != nil {
		t.Fatalf("SelectTrack: %v", err)
	}
	if first != second {
		t.Errorf("identical inputs must select the identical track: %+v vs %+v", first, second)
	}
	if first.SourceURL != "a" {
		t.Errorf("ties within language+kind resolve by catalog order, got %q", first.SourceURL)
	}
}
