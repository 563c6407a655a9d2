package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ytt/internal/transcript"
)

// TestService_end_to_end_with_real_client runs the full pipeline — catalog
// resolution, track selection, payload fetch, parse, cache — with the real
// Client wired into the real Service, against one fake upstream serving
// both the player endpoint and the caption payload.
func TestService_end_to_end_with_real_client(t *testing.T) {
	var srv *httptest.Server
	var playerCalls, captionCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		playerCalls.Add(1)
		var req struct {
			VideoID string `json:"videoId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VideoID != "abc123XYZ_-" {
			t.Errorf("unexpected player request: videoId=%q err=%v", req.VideoID, err)
		}
		fmt.Fprintf(w, `{
			"playabilityStatus": {"status": "OK"},
			"captions": {"playerCaptionsTracklistRenderer": {"captionTracks": [
				{"baseUrl": %q, "languageCode": "en", "name": {"simpleText": "English"}}
			]}}
		}`, srv.URL+"/api/timedtext?v=abc123XYZ_-&lang=en")
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		captionCalls.Add(1)
		if got := r.URL.Query().Get("fmt"); got != "json3" {
			t.Errorf("caption request should carry fmt=json3, got %q", got)
		}
		w.Write([]byte(`{"events":[
			{"tStartMs":0,"dDurationMs":2000,"segs":[{"utf8":"Hi"}]},
			{"tStartMs":2000,"dDurationMs":3000,"segs":[{"utf8":"there"}]}
		]}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	svc := transcript.NewService(client, client,
		transcript.NewTranscriptCache(time.Minute),
		[]transcript.LanguageCode{"en"}, 5*time.Second, nil)

	tr, err := svc.GetTranscript(context.Background(), "abc123XYZ_-", nil)
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}

	if tr.VideoID != "abc123XYZ_-" || tr.Language != "en" {
		t.Errorf("unexpected transcript identity: %+v", tr)
	}
	want := []transcript.Segment{{Start: 0, Duration: 2, Text: "Hi"}, {Start: 2, Duration: 3, Text: "there"}}
	if len(tr.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %+v", len(want), tr.Segments)
	}
	for i := range want {
		if tr.Segments[i] != want[i] {
			t.Errorf("segment %d: got %+v want %+v", i, tr.Segments[i], want[i])
		}
	}

	// A repeat request is served from cache without touching upstream.
	if _, err := svc.GetTranscript(context.Background(), "abc123XYZ_-", nil); err != nil {
		t.Fatalf("cached GetTranscript: %v", err)
	}
	if playerCalls.Load() != 1 || captionCalls.Load() != 1 {
		t.Errorf("second call should hit the cache, upstream saw player=%d captions=%d",
			playerCalls.Load(), captionCalls.Load())
	}
}
