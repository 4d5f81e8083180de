package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Backoff bounds. The delay doubles after every failed attempt.
var (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// retryDo sends req up to maxAttempts times. Transport errors, 429 and 5xx
// responses are retried; a Retry-After header given in seconds replaces
// the computed delay. The request body is buffered so it can be replayed.
// The last response is returned with its body open, whatever its status.
func retryDo(client *http.Client, req *http.Request, maxAttempts int) (*http.Response, error) {
	maxAttempts = max(maxAttempts, 1)
	replay, err := bufferBody(req)
	if err != nil {
		return nil, err
	}
	ctx := req.Context()

	delay := retryBaseDelay
	for attempt := 1; ; attempt++ {
		if replay != nil {
			req.Body = replay()
		}
		resp, err := client.Do(req)
		final := attempt == maxAttempts
		switch {
		case err != nil:
			if final || ctx.Err() != nil {
				return nil, err
			}
		case !isRetryableStatus(resp.StatusCode) || final:
			return resp, nil
		default:
			if d, ok := retryAfter(resp); ok {
				delay = d
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if err := sleepContext(ctx, min(delay, retryMaxDelay)); err != nil {
			return nil, err
		}
		delay *= 2
	}
}

// bufferBody drains req.Body and returns a function yielding fresh copies
// of it, or nil for a request without a body.
func bufferBody(req *http.Request) (func() io.ReadCloser, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(data))
	return func() io.ReadCloser { return io.NopCloser(bytes.NewReader(data)) }, nil
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After")))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
