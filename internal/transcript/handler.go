package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"ytt/internal/platform/metrics"
)

// videoIDPattern is the fixed-length token YouTube uses for video ids.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Handler exposes the transcript endpoint using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording.
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// errorResponse is the JSON body for every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// GetTranscript handles GET /videos/{video_id}/transcript.
// Language preferences come from repeated or comma-separated "lang"
// query parameters; the configured default list applies when absent.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "video_id")
	if !videoIDPattern.MatchString(id) {
		h.log.Debug("rejected video id", slog.String("video_id", id))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "video_id must be an 11-character token"})
		return
	}

	langs := parseLangParams(r.URL.Query()["lang"])

	t, err := h.svc.GetTranscript(r.Context(), VideoID(id), langs)
	if err != nil {
		h.writeError(w, id, err)
		return
	}

	h.log.Debug("transcript served",
		slog.String("video_id", id),
		slog.String("language", string(t.Language)),
		slog.Int("segments", len(t.Segments)))
	if h.metrics != nil {
		h.metrics.IncTranscriptsServed()
	}
	writeJSON(w, http.StatusOK, t)
}

// writeError maps each error kind to its distinct status code. Unknown
// errors become 500; a transcript request never degrades into a
// successful-looking empty body.
func (h *Handler) writeError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away. Still write an explicit status so middleware
		// and access logs never record the abandonment as a 200.
		h.log.Debug("request abandoned", slog.String("video_id", id))
		writeJSON(w, http.StatusRequestTimeout, errorResponse{Error: "request_cancelled"})
		return
	}

	kind, status := classifyError(err)
	if h.metrics != nil {
		h.metrics.IncError(kind)
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("transcript request failed",
			slog.String("video_id", id),
			slog.String("kind", kind),
			slog.String("error", err.Error()))
	} else {
		h.log.Info("transcript request rejected",
			slog.String("video_id", id),
			slog.String("kind", kind),
			slog.String("error", err.Error()))
	}

	writeJSON(w, status, errorResponse{Error: kind, Message: err.Error()})
}

// classifyError reduces a pipeline error to its taxonomy kind and the
// HTTP status that kind maps to.
func classifyError(err error) (kind string, status int) {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, ErrNoMatchingTrack):
		return "no_matching_track", http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return "rate_limited", http.StatusTooManyRequests
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable", http.StatusBadGateway
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload", http.StatusBadGateway
	default:
		return "internal", http.StatusInternalServerError
	}
}

// parseLangParams accepts both ?lang=en&lang=de and ?lang=en,de.
func parseLangParams(values []string) []LanguageCode {
	var langs []LanguageCode
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				langs = append(langs, LanguageCode(part))
			}
		}
	}
	return langs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
