package feeds

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxBodySize = 10 * 1024 * 1024

// FetcherConfig holds shared settings for the upstream feed clients
type FetcherConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns the fetcher settings used when none are configured
func DefaultConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:   15 * time.Second,
		UserAgent: "Pulseboard/1.0",
	}
}

func newHTTPClient(cfg FetcherConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// getBody fetches rawURL and returns the response body. Status handling:
// 429 becomes RateLimitedError, any other non-2xx becomes NetworkError.
func getBody(ctx context.Context, client *http.Client, rawURL, userAgent string) ([]byte, error) {
	host := hostOf(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetworkError{Host: host, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &NetworkError{Host: host, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitedError{Host: host}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Host: host, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{Host: host, Err: err}
	}
	return body, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
