package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T, resolver CatalogResolver, fetcher CaptionFetcher) *Handler {
	t.Helper()
	svc := NewService(resolver, fetcher, NewTranscriptCache(time.Minute), []LanguageCode{"en"}, 5*time.Second, nil)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewHandler(svc, log, nil)
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/videos/{video_id}", func(r chi.Router) {
		r.Get("/transcript", h.GetTranscript)
	})
	return r
}

func TestHandler_GetTranscript(t *testing.T) {
	resolver := &fakeResolver{catalog: enCatalog()}
	fetcher := &fakeFetcher{payload: twoCuePayload()}
	r := newTestRouter(newTestHandler(t, resolver, fetcher))

	req := httptest.NewRequest(http.MethodGet, "/videos/abc123XYZ_-/transcript?lang=en", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("unexpected content type %q", ct)
	}

	var tr Transcript
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if tr.VideoID != "abc123XYZ_-" || tr.Language != "en" || len(tr.Segments) != 2 {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if tr.Segments[0].Text != "Hi" || tr.Segments[1].Text != "there" {
		t.Errorf("unexpected segments: %+v", tr.Segments)
	}
}

func TestHandler_GetTranscript_comma_separated_langs(t *testing.T) {
	resolver := &fakeResolver{catalog: TrackCatalog{
		{Language: "de", Kind: TrackKindManual, SourceURL: "de"},
		{Language: "fr", Kind: TrackKindManual, SourceURL: "fr"},
	}}
	fetcher := &fakeFetcher{payload: twoCuePayload()}
	r := newTestRouter(newTestHandler(t, resolver, fetcher))

	req := httptest.NewRequest(http.MethodGet, "/videos/abc123XYZ_-/transcript?lang=fr,de", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tr Transcript
	_ = json.Unmarshal(rec.Body.Bytes(), &tr)
	if tr.Language != "fr" {
		t.Errorf("expected fr selected from comma list, got %q", tr.Language)
	}
}

func TestHandler_GetTranscript_invalid_video_id(t *testing.T) {
	r := newTestRouter(newTestHandler(t, &fakeResolver{}, &fakeFetcher{}))

	for _, id := range []string{"short", "waytoolongvideoid", "bad%20chars!"} {
		req := httptest.NewRequest(http.MethodGet, "/videos/"+id+"/transcript", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: expected 400, got %d", id, rec.Code)
		}
	}
}

func TestHandler_GetTranscript_error_status_mapping(t *testing.T) {
	cases := []struct {
		name       string
		resolver   CatalogResolver
		fetcher    CaptionFetcher
		wantStatus int
		wantKind   string
	}{
		{
			name:       "not found",
			resolver:   &fakeResolver{err: fmt.Errorf("%w: nope", ErrNotFound)},
			fetcher:    &fakeFetcher{},
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "no matching track",
			resolver:   &fakeResolver{catalog: TrackCatalog{}},
			fetcher:    &fakeFetcher{},
			wantStatus: http.StatusNotFound,
			wantKind:   "no_matching_track",
		},
		{
			name:       "rate limited",
			resolver:   &fakeResolver{catalog: enCatalog()},
			fetcher:    &fakeFetcher{err: fmt.Errorf("%w: slow down", ErrRateLimited)},
			wantStatus: http.StatusTooManyRequests,
			wantKind:   "rate_limited",
		},
		{
			name:       "upstream unavailable",
			resolver:   &fakeResolver{err: fmt.Errorf("%w: 503", ErrUpstreamUnavailable)},
			fetcher:    &fakeFetcher{},
			wantStatus: http.StatusBadGateway,
			wantKind:   "upstream_unavailable",
		},
		{
			name:       "malformed payload",
			resolver:   &fakeResolver{catalog: enCatalog()},
			fetcher:    &fakeFetcher{payload: RawCaptionPayload{Format: FormatJSON3, Body: []byte("{bad")}},
			wantStatus: http.StatusBadGateway,
			wantKind:   "malformed_payload",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(newTestHandler(t, tc.resolver, tc.fetcher))

			req := httptest.NewRequest(http.MethodGet, "/videos/abc123XYZ_-/transcript", nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error != tc.wantKind {
				t.Errorf("expected error kind %q, got %q", tc.wantKind, body.Error)
			}
		})
	}
}

func TestHandler_GetTranscript_abandoned_request_gets_explicit_status(t *testing.T) {
	// Resolver that never finishes within the request's lifetime, so the
	// cancelled caller abandons the wait.
	resolver := &fakeResolver{catalog: enCatalog(), block: make(chan struct{})}
	t.Cleanup(func() { close(resolver.block) })
	r := newTestRouter(newTestHandler(t, resolver, &fakeFetcher{payload: twoCuePayload()}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/videos/abc123XYZ_-/transcript", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// Never an implicit 200: the recorded status must say the request
	// was abandoned.
	if rec.Code != http.StatusRequestTimeout {
		t.Fatalf("expected 408 for an abandoned request, got %d: %s", rec.Code, rec.Body.String())
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error != "request_cancelled" {
		t.Errorf("expected error kind %q, got %q", "request_cancelled", body.Error)
	}
}

func TestHandler_GetTranscript_empty_transcript_is_still_success(t *testing.T) {
	resolver := &fakeResolver{catalog: enCatalog()}
	fetcher := &fakeFetcher{payload: RawCaptionPayload{Format: FormatJSON3, Body: []byte(`{"events":[]}`)}}
	r := newTestRouter(newTestHandler(t, resolver, fetcher))

	req := httptest.NewRequest(http.MethodGet, "/videos/abc123XYZ_-/transcript", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// A track that parses to zero segments is a valid result, distinct
	// from any error kind.
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for empty transcript, got %d", rec.Code)
	}
}
