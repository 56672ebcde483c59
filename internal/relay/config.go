package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrMissingBaseURL is returned by New when no upstream is configured.
	ErrMissingBaseURL = errors.New("relay: upstream base URL is required")

	// ErrInvalidBaseURL is returned by New for a non-absolute upstream URL.
	ErrInvalidBaseURL = errors.New("relay: upstream base URL must be an absolute http(s) URL")

	// ErrMissingAPIKey is reported on every request while no key is set.
	ErrMissingAPIKey = errors.New("relay: upstream API key is not configured")
)

// Config holds relay configuration.
type Config struct {
	// BaseURL is the upstream API root, e.g. "https://api.example.com/v1".
	// Required.
	BaseURL string

	// APIKey is attached as a bearer token on every upstream request.
	// When empty every request fails closed with 500.
	APIKey string

	// ExposeErrors adds the raw upstream error text to 500 responses.
	// Leave off in production.
	ExposeErrors bool

	// Client issues upstream requests. Defaults to a client without a
	// timeout; the caller's context bounds each request.
	Client *http.Client

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Client == nil {
		c.Client = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	return nil
}
