package transcript

import "errors"

// The pipeline's error taxonomy. Every failure surfaced by the service
// wraps exactly one of these sentinels; the HTTP layer maps each kind to
// a distinct status code. No component downgrades an error into an empty
// result.
var (
	// ErrNotFound means the video does not exist or captions are disabled
	// for it entirely. Terminal, never retried.
	ErrNotFound = errors.New("video or caption set not found")

	// ErrNoMatchingTrack means the selection policy found no usable track.
	// With the manual-then-auto fallback this only happens for an empty
	// catalog. Terminal.
	ErrNoMatchingTrack = errors.New("no matching caption track")

	// ErrRateLimited means the local limiter denied a token within its
	// bounded wait, or the upstream throttled us. The caller may retry
	// later.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstreamUnavailable means a transport-level failure reaching the
	// upstream that survived the internal retry policy, or the overall
	// pipeline deadline was exceeded.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedPayload means the raw caption payload could not be
	// decoded as its declared format, or violated a data-integrity
	// invariant after normalization. Terminal for this request.
	ErrMalformedPayload = errors.New("malformed caption payload")
)
