package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// HTTPConfig configures the REST work-item source.
type HTTPConfig struct {
	// BaseURL is the API root, e.g. "https://tracker.example.com/api".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Token is the bearer token sent with every request, empty for none.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// RequestsPerSecond throttles outgoing calls so a large learning
	// batch does not hammer the tracker. Default: 5
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Timeout bounds each request. Default: 15s
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultHTTPConfig returns the standard HTTP source configuration.
func DefaultHTTPConfig(baseURL string) HTTPConfig {
	return HTTPConfig{
		BaseURL:           baseURL,
		RequestsPerSecond: 5,
		Timeout:           15 * time.Second,
	}
}

// HTTPSource fetches examples from a work-item tracker's REST API.
//
// Expected endpoints:
//
//	GET {base}/stories           -> {"ids": ["S-1", ...]}
//	GET {base}/stories/{id}      -> {"story": {...}, "children": [...]}
type HTTPSource struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource creates a rate-limited REST source.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// GetExample implements Source.
func (s *HTTPSource) GetExample(ctx context.Context, id string) (*Example, error) {
	var ex Example
	if err := s.getJSON(ctx, "/stories/"+url.PathEscape(id), &ex); err != nil {
		return nil, err
	}
	if ex.Story.ID == "" {
		ex.Story.ID = id
	}
	return &ex, nil
}

// ListExamples implements Source.
func (s *HTTPSource) ListExamples(ctx context.Context) ([]string, error) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if err := s.getJSON(ctx, "/stories", &payload); err != nil {
		return nil, err
	}
	return payload.IDs, nil
}

// getJSON performs one rate-limited GET and decodes the JSON body.
func (s *HTTPSource) getJSON(ctx context.Context, path string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	slog.Debug("work-item fetch",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{ID: path}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
