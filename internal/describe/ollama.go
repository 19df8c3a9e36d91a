// SPDX-License-Identifier: MPL-2.0

package describe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/keinus/make-sps/pkg/record"
)

// pingTimeout bounds the reachability check.
const pingTimeout = 5 * time.Second

type (
	// Ollama describes files with a local Ollama server.
	Ollama struct {
		httpClient  *http.Client
		client      *api.Client
		clientErr   error
		model       string
		maxFileSize int64
		timeout     time.Duration
		// reachable is set by Ping. Describe returns ErrUnavailable until a
		// ping succeeds.
		reachable atomic.Bool
	}

	// OllamaOption configures an Ollama describer during construction.
	OllamaOption func(*Ollama)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) {
		o.httpClient = c
	}
}

// WithMaxFileSize sets the largest file sent to the model.
func WithMaxFileSize(n int64) OllamaOption {
	return func(o *Ollama) {
		o.maxFileSize = n
	}
}

// WithTimeout bounds each generate request.
func WithTimeout(d time.Duration) OllamaOption {
	return func(o *Ollama) {
		o.timeout = d
	}
}

// NewOllama creates an Ollama describer. An empty baseURL falls back to
// OLLAMA_HOST. Call Ping before use.
func NewOllama(baseURL, model string, opts ...OllamaOption) *Ollama {
	o := &Ollama{
		httpClient:  http.DefaultClient,
		model:       model,
		maxFileSize: DefaultMaxFileSize,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	if baseURL == "" {
		o.client, o.clientErr = api.ClientFromEnvironment()
		return o
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		o.clientErr = fmt.Errorf("parsing api base %q: %w", baseURL, err)
		return o
	}
	o.client = api.NewClient(base, o.httpClient)
	return o
}

// Ping checks that the server answers its heartbeat.
func (o *Ollama) Ping(ctx context.Context) error {
	o.reachable.Store(false)
	if o.clientErr != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, o.clientErr)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := o.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	o.reachable.Store(true)
	return nil
}

// Describe implements record.Describer.
func (o *Ollama) Describe(ctx context.Context, s record.Subject) (string, error) {
	if !o.reachable.Load() {
		return "", ErrUnavailable
	}
	content, err := LoadContent(s.Path, o.maxFileSize)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	stream := false
	var answer strings.Builder
	err = o.client.Generate(ctx, &api.GenerateRequest{
		Model:  o.model,
		Prompt: Prompt(content),
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		answer.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return accept(answer.String()), nil
}
