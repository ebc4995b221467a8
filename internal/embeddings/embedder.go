// Package embeddings turns text into vectors. Two providers are supported:
// OpenAI's embeddings API and a local Ollama instance.
package embeddings

import (
	"context"
	"fmt"
	"os"

	"github.com/vibecoding/mcp-server/internal/config"
)

// Embedder generates embedding vectors for texts.
type Embedder interface {
	// Embed generates one embedding per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of the vectors this embedder produces.
	Dimensions() int

	// Name identifies the underlying model.
	Name() string
}

// NewFromConfig builds the embedder selected by the embedding config section.
// The OpenAI provider reads its API key from OPENAI_API_KEY.
func NewFromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedding provider openai requires OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(apiKey, cfg.Model), nil
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.Model, cfg.Dimensions, cfg.OllamaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
