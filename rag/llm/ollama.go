package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zongseung/energyrag/config"
)

// Ollama implements Client against a local Ollama server.
type Ollama struct {
	client     *resty.Client
	host       string
	chatModel  string
	embedModel string
}

var _ Client = (*Ollama)(nil)

// NewOllama creates a client for the configured Ollama host.
func NewOllama(cfg config.LLMConfig) *Ollama {
	return &Ollama{
		client:     resty.New().SetTimeout(5 * time.Minute),
		host:       strings.TrimRight(cfg.OllamaHost, "/"),
		chatModel:  cfg.OllamaChatModel,
		embedModel: cfg.OllamaEmbed,
	}
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	var out ollamaEmbedResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"model": o.embedModel, "input": text}).
		SetResult(&out).
		Post(o.host + "/api/embed")
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("ollama embedding: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embedding: empty response")
	}
	return out.Embeddings[0], nil
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

func (o *Ollama) Chat(ctx context.Context, system, user string, history []Message) (string, error) {
	messages := make([]ollamaChatMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		messages = append(messages, ollamaChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: user})

	var out ollamaChatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"model": o.chatModel, "messages": messages, "stream": false}).
		SetResult(&out).
		Post(o.host + "/api/chat")
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Message.Content, nil
}
