package data

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const userAgent = "macro-stress/1.0"

// Getter executes rate-limited GET requests and maps status codes to FetchError.
type Getter struct {
	source  string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewGetter(source string, rps float64, log zerolog.Logger) Getter {
	if rps <= 0 {
		rps = 2
	}
	return Getter{
		source:  source,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}
}

// Get issues the request and returns the response only for 200 OK.
// The caller closes the body.
func (g Getter) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	dur := time.Since(start)
	if err != nil {
		g.log.Error().Err(err).Dur("duration", dur).Str("path", req.URL.Path).Msg("request failed")
		return nil, &FetchError{Source: g.source, Code: "REQUEST_FAILED", Message: err.Error()}
	}
	g.log.Debug().Int("status", resp.StatusCode).Dur("duration", dur).Str("path", req.URL.Path).Msg("response")

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, &FetchError{
			Source:     g.source,
			StatusCode: resp.StatusCode,
			Code:       "UNAUTHORIZED",
			Message:    "invalid API key or insufficient permissions",
		}
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, &FetchError{
			Source:     g.source,
			StatusCode: resp.StatusCode,
			Code:       "NOT_FOUND",
			Message:    fmt.Sprintf("not found: %s", req.URL.Path),
		}
	case http.StatusTooManyRequests:
		resp.Body.Close()
		retryAfter := resp.Header.Get("Retry-After")
		return nil, &FetchError{
			Source:     g.source,
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("rate limit exceeded, retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		resp.Body.Close()
		return nil, &FetchError{
			Source:     g.source,
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}
}
