package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var (
	// ErrNoEndpoint is returned when constructing an HTTP provider without a URL.
	ErrNoEndpoint = errors.New("emotion: classifier endpoint not configured")

	// ErrEmptyResult is returned when the classifier finds no face to score.
	ErrEmptyResult = errors.New("emotion: classifier returned no results")
)

// Provider classifies a cropped face image into ranked emotion scores.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Classify returns raw scores for the JPEG image. Scores need not
	// sum to 1; callers renormalize via NewVector.
	Classify(ctx context.Context, jpeg []byte) ([]Scored, error)
}

// Config holds HTTP provider settings.
type Config struct {
	Endpoint string        // Classifier service URL
	Timeout  time.Duration // Per-request timeout
	Logger   *slog.Logger
}

// Option is a functional option for the HTTP provider.
type Option func(*Config)

// WithEndpoint sets the classifier service URL.
func WithEndpoint(url string) Option {
	return func(c *Config) { c.Endpoint = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// HTTPProvider talks to an emotion-classifier service that accepts a JPEG
// body and responds with a JSON array of {label, score} pairs.
type HTTPProvider struct {
	cfg  Config
	http *http.Client
}

// NewHTTPProvider creates an HTTP-backed classifier provider.
func NewHTTPProvider(opts ...Option) (*HTTPProvider, error) {
	cfg := Config{
		Timeout: 5 * time.Second,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	return &HTTPProvider{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Classify posts the image to the classifier service.
func (p *HTTPProvider) Classify(ctx context.Context, jpeg []byte) ([]Scored, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(jpeg))
	if err != nil {
		return nil, fmt.Errorf("emotion: build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("emotion: classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("emotion: classifier returned %d: %s", resp.StatusCode, body)
	}

	var scores []Scored
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("emotion: decode response: %w", err)
	}
	if len(scores) == 0 {
		return nil, ErrEmptyResult
	}

	p.cfg.Logger.Debug("emotion classified", "results", len(scores))
	return scores, nil
}
