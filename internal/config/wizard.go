package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// defaultModels maps each embedding provider to its default model.
var defaultModels = map[EmbeddingProvider]string{
	ProviderOpenAI: "text-embedding-3-small",
	ProviderOllama: "nomic-embed-text",
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. The caller is responsible for saving it.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to vibemcp! Let's configure your server.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Embedding.Provider = EmbeddingProvider(providerStr)
	cfg.Embedding.Model = defaultModels[cfg.Embedding.Provider]

	modelPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: cfg.Embedding.Model,
	}
	if model, err := modelPrompt.Run(); err == nil && model != "" {
		cfg.Embedding.Model = model
	}

	if cfg.Embedding.Provider == ProviderOllama {
		dimsPrompt := promptui.Prompt{
			Label:   "Embedding dimensions",
			Default: "768",
			Validate: func(s string) error {
				_, err := strconv.Atoi(s)
				return err
			},
		}
		if dims, err := dimsPrompt.Run(); err == nil {
			cfg.Embedding.Dimensions, _ = strconv.Atoi(dims)
		}
	}

	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			if n <= 0 || n > 65535 {
				return fmt.Errorf("port out of range")
			}
			return nil
		},
	}
	if port, err := portPrompt.Run(); err == nil {
		cfg.Port, _ = strconv.Atoi(port)
	}

	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory (vector index and user store)",
		Default: cfg.DataDir,
	}
	if dir, err := dataDirPrompt.Run(); err == nil && dir != "" {
		cfg.DataDir = dir
	}

	secret, err := randomSecret()
	if err != nil {
		return nil, fmt.Errorf("generating token secret: %w", err)
	}
	cfg.Auth.Secret = secret
	fmt.Println("Generated a random token signing secret.")

	return cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
