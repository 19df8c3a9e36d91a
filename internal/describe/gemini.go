// SPDX-License-Identifier: MPL-2.0

package describe

import (
	"context"
	"errors"
	"fmt"
	"time"

	genai "google.golang.org/genai"

	"github.com/keinus/make-sps/pkg/record"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

type (
	// GeminiConfig configures a Gemini describer.
	GeminiConfig struct {
		APIKey string
		Model  string
		// BaseURL overrides the API endpoint, mainly for tests.
		BaseURL     string
		MaxFileSize int64
		Timeout     time.Duration
	}

	// Gemini describes files with the Gemini generateContent API.
	Gemini struct {
		cli         *genai.Client
		model       string
		maxFileSize int64
		timeout     time.Duration
	}
)

// NewGemini creates a Gemini describer.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %w", ErrUnavailable, err)
	}

	g := &Gemini{
		cli:         cli,
		model:       cfg.Model,
		maxFileSize: cfg.MaxFileSize,
		timeout:     cfg.Timeout,
	}
	if g.model == "" {
		g.model = DefaultGeminiModel
	}
	if g.maxFileSize <= 0 {
		g.maxFileSize = DefaultMaxFileSize
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	return g, nil
}

// Describe implements record.Describer.
func (g *Gemini) Describe(ctx context.Context, s record.Subject) (string, error) {
	content, err := LoadContent(s.Path, g.maxFileSize)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: Prompt(content)}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini generate: empty response")
	}
	return accept(resp.Candidates[0].Content.Parts[0].Text), nil
}
