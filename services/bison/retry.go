package bison

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jpillora/backoff"
)

// fetchWithRetry issues the request built by buildReq, retrying server
// errors and network failures with exponential backoff (1s, 2s, 4s, ...).
// A 2xx or 4xx response is returned immediately: client errors are
// permanent and must not be masked by retries. After exhausting retries the
// last 5xx response is returned as-is; a final network failure returns the
// last error.
func fetchWithRetry(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error), maxRetries int) (*http.Response, error) {
	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: false,
	}

	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := b.Duration()
			log.Printf("[bison] retry %d/%d after %v", attempt, maxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			lastResp = nil
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[bison] request failed (attempt %d/%d): %v", attempt+1, maxRetries+1, err)
			continue
		}

		if resp.StatusCode < 500 {
			// 2xx and 4xx are final
			return resp, nil
		}

		lastErr = nil
		if lastResp != nil {
			drainAndClose(lastResp)
		}
		lastResp = resp
		log.Printf("[bison] upstream returned %d (attempt %d/%d)", resp.StatusCode, attempt+1, maxRetries+1)
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}

func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
