package remote

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

// HeaderRetryAfter carries the server-recommended delay (seconds or HTTP date).
const HeaderRetryAfter = "Retry-After"

// maxErrorBody limits how much of an error response is read.
const maxErrorBody = 64 << 10

// checkResponse converts a non-2xx response into an error.
func checkResponse(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &domain.RateLimitError{RetryAfter: retryAfter(resp.Header, time.Now())}
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, domain.ErrAuthExpired)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.String() != "" {
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, apiErr.String())
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, msg)
}

// retryAfter parses the Retry-After header. A missing or malformed header
// yields zero; the caller's backoff still adds its own step.
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get(HeaderRetryAfter))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
