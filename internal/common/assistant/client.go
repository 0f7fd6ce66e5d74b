// Package assistant configures the OpenAI client that drives the hosted assistant
// threads/runs API and reads the parts of its responses the recommendation flow needs.
package assistant

import (
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	commonhttp "vm-pathways/internal/common/http"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultBetaHeader = "assistants=v2"
	DefaultTimeout    = 30 * time.Second

	userAgent = "vm-pathways"
)

// ErrMissingID is returned when a 2xx response lacks an id the next call depends on.
var ErrMissingID = errors.New("assistant api: response missing id")

type Config struct {
	BaseURL    string
	APIKey     string
	BetaHeader string
	Timeout    time.Duration
}

// NewClient returns an OpenAI client bound to cfg. Every request carries the bearer
// key and the OpenAI-Beta assistants header.
func NewClient(cfg Config) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.AssistantVersion = assistantVersion(cfg.BetaHeader)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	oc.HTTPClient = commonhttp.NewClient(timeout, commonhttp.WithHeader("User-Agent", userAgent))

	return openai.NewClientWithConfig(oc)
}

// assistantVersion turns an OpenAI-Beta header value such as "assistants=v2" into the
// version the client expects.
func assistantVersion(betaHeader string) string {
	if betaHeader == "" {
		betaHeader = DefaultBetaHeader
	}
	return strings.TrimPrefix(betaHeader, "assistants=")
}

// StatusCode returns the HTTP status carried by an API error, or 0 when err did not
// come from a non-2xx response.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// EmptyBody reports whether err only says that a 2xx response had no JSON body.
// Transport failures arrive as *url.Error and are never treated as empty bodies.
func EmptyBody(err error) bool {
	var urlErr *url.Error
	return errors.Is(err, io.EOF) && !errors.As(err, &urlErr)
}
