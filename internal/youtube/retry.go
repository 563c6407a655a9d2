package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v5"

	"ytt/internal/transcript"
)

// statusError wraps an upstream HTTP status that ended an attempt.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Code)
}

// doWithRetry runs one upstream call under the shared retry policy:
// exponential backoff with jitter up to the configured attempt ceiling.
// Transient failures (transport errors, 5xx) are retried; 429 and other
// 4xx statuses fail immediately. When limited is true each attempt first
// acquires a limiter token within the bounded wait.
//
// newReq builds a fresh request per attempt so the body and context are
// never reused across attempts.
func (c *Client) doWithRetry(ctx context.Context, limited bool, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	operation := func() ([]byte, error) {
		if limited {
			if err := c.waitToken(ctx); err != nil {
				return nil, backoff.Permanent(err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()

		req, err := newReq(attemptCtx)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err // transport failure: retried
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			// Upstream throttling surfaces immediately: retrying would
			// consume more limiter tokens while already being told to
			// back off.
			return nil, backoff.Permanent(&statusError{Code: resp.StatusCode})
		case resp.StatusCode >= 500:
			return nil, &statusError{Code: resp.StatusCode}
		default:
			// 4xx other than 429: upstream marked the resource
			// unavailable; retrying cannot help.
			return nil, backoff.Permanent(&statusError{Code: resp.StatusCode})
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BackoffInitial
	bo.MaxInterval = c.cfg.BackoffMax

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
	)
	if err != nil {
		return nil, c.classify(err)
	}
	return body, nil
}

// waitToken blocks for a limiter token, bounded by the configured wait.
// Failing to get a token in time is ErrRateLimited, not an indefinite
// stall; a dying parent context keeps its own error.
func (c *Client) waitToken(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.LimiterWait)
	defer cancel()

	if err := c.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: no limiter token within %s", transcript.ErrRateLimited, c.cfg.LimiterWait)
	}
	return nil
}

// classify folds whatever survived the retry loop into the pipeline's
// error taxonomy. Errors already carrying a taxonomy sentinel pass
// through unchanged.
func (c *Client) classify(err error) error {
	switch {
	case errors.Is(err, transcript.ErrRateLimited),
		errors.Is(err, transcript.ErrNotFound),
		errors.Is(err, transcript.ErrUpstreamUnavailable):
		return err
	case errors.Is(err, context.Canceled):
		return err
	}

	var se *statusError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: upstream throttled", transcript.ErrRateLimited)
	}

	return fmt.Errorf("%w: %v", transcript.ErrUpstreamUnavailable, err)
}
