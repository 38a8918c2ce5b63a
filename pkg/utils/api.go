package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// HTTPError is returned when a server answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

type API struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewAPI wraps client with an optional request rate limit. rps <= 0 disables limiting.
func NewAPI(client *http.Client, rps float64) *API {
	if client == nil {
		client = http.DefaultClient
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return &API{client: client, limiter: limiter}
}

// GetJSON fetches rawURL with params appended and decodes the body into v.
func (a *API) GetJSON(ctx context.Context, rawURL string, params url.Values, v any) error {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + params.Encode()
	}

	resp, err := a.do(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", rawURL, err)
	}
	return nil
}

// Open issues a GET and returns the raw response. The caller owns the body.
// Non-2xx statuses are returned as *HTTPError with the body already closed.
func (a *API) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	return a.do(ctx, rawURL, "")
}

func (a *API) do(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: rawURL}
	}
	return resp, nil
}
