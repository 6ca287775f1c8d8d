package vinted

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/536.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.14 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.1.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E147 Safari/604.1",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:112.0) Gecko/20100101 Firefox/111.0",
}

const requesterMaxRetries = 3

// Requester issues requests against a Vinted host. The upstream rejects
// cookieless clients with 401, so a session cookie is obtained by hitting
// the host root and refreshed whenever a request comes back unauthorized.
type Requester struct {
	client *http.Client
}

func NewRequester(proxyURL string) (*Requester, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := http.DefaultTransport
	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}

	return &Requester{
		client: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}, nil
}

// Get fetches the URL and returns the response body. 401 and 404 responses
// trigger a cookie refresh and a retry; any other non-200 status is
// returned to the caller as a StatusError.
func (r *Requester) Get(ctx context.Context, requestURL string) ([]byte, error) {
	parsed, err := url.Parse(requestURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse request URL: %w", err)
	}

	var lastStatus int

	for attempt := 0; attempt < requesterMaxRetries; attempt++ {
		body, status, err := r.doGet(ctx, requestURL)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusOK:
			return body, nil
		case status == http.StatusUnauthorized || status == http.StatusNotFound:
			lastStatus = status
			if err := r.refreshSession(ctx, parsed.Host); err != nil {
				return nil, fmt.Errorf("failed to refresh session: %w", err)
			}
		default:
			return body, &StatusError{Code: status, URL: requestURL}
		}
	}

	return nil, &StatusError{Code: lastStatus, URL: requestURL}
}

// StatusError reports a non-200 upstream response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

func (r *Requester) doGet(ctx context.Context, requestURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", requestURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// refreshSession hits the host root so the jar picks up fresh session
// cookies, the same way a browser would on first visit.
func (r *Requester) refreshSession(ctx context.Context, host string) error {
	req, err := http.NewRequestWithContext(ctx, "HEAD", "https://"+host+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create session request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch session cookies: %w", err)
	}
	resp.Body.Close()

	return nil
}

func (r *Requester) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
