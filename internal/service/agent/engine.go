// Package agent runs the tool-augmented LLM loop that produces assistant
// replies. The orchestrator consumes it through the Engine interface so the
// reasoning machinery stays swappable and easy to stub in tests.
package agent

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupportedProvider rejects provider values outside the known set.
var ErrUnsupportedProvider = errors.New("unsupported model provider, use 'groq' or 'openai'")

// FallbackResponse stands in when the agent finishes without any content.
const FallbackResponse = "No response from the agent."

// Provider selects which model backend serves a request.
type Provider string

const (
	ProviderGroq   Provider = "groq"
	ProviderOpenAI Provider = "openai"
)

// ParseProvider normalizes a caller-supplied provider name.
func ParseProvider(raw string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderGroq:
		return ProviderGroq, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	default:
		return "", ErrUnsupportedProvider
	}
}

// Tools flags which capabilities the agent may invoke for one request.
type Tools struct {
	Search         bool
	AcademicSearch bool
}

// Request carries everything one agent invocation needs.
type Request struct {
	Model        string
	Provider     Provider
	SystemPrompt string
	Transcript   []string
	Tools        Tools
}

// Engine produces the assistant's final text for a transcript.
type Engine interface {
	Run(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (TextStream, error)
}

// TextStream yields response chunks. Recv returns io.EOF when the stream is
// exhausted; Close releases the underlying reader.
type TextStream interface {
	Recv() (string, error)
	Close()
}
