// Package llm abstracts the chat and embedding providers used by the
// question-answering graph.
package llm

import (
	"context"
	"fmt"

	"github.com/zongseung/energyrag/config"
)

// Message is one prior conversation turn.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Client is the provider surface the graph nodes depend on.
type Client interface {
	// Embed returns the embedding vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Chat runs one completion with an optional system prompt and
	// conversation history.
	Chat(ctx context.Context, system, user string, history []Message) (string, error)
}

// New selects a provider from configuration.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "", "openai":
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return NewOpenAI(cfg), nil
	case "ollama":
		return NewOllama(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
