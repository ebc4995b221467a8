package config

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

const (
	ProviderOpenAI EmbeddingProvider = "openai"
	ProviderOllama EmbeddingProvider = "ollama"
)

// Config is the top-level server configuration, corresponding to .vibemcp.yml.
// Source credentials are not configured here; the source clients read them
// from their conventional environment variables (GMAIL_*, ZOOM_*, NOTION_*,
// SALESFORCE_*) and degrade to empty results when unset.
type Config struct {
	Host            string          `yaml:"host" koanf:"host"`
	Port            int             `yaml:"port" koanf:"port"`
	DataDir         string          `yaml:"data_dir" koanf:"data_dir"`
	AllowAllOrigins bool            `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Auth            AuthConfig      `yaml:"auth" koanf:"auth"`
	Embedding       EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Index           IndexConfig     `yaml:"index" koanf:"index"`
}

// AuthConfig holds token-signing settings.
type AuthConfig struct {
	Secret             string `yaml:"secret" koanf:"secret"`
	TokenExpiryMinutes int    `yaml:"token_expiry_minutes" koanf:"token_expiry_minutes"`
}

// EmbeddingConfig selects the embedding backend used by the vector index.
type EmbeddingConfig struct {
	Provider      EmbeddingProvider `yaml:"provider" koanf:"provider"`
	Model         string            `yaml:"model" koanf:"model"`
	Dimensions    int               `yaml:"dimensions" koanf:"dimensions"`
	OllamaBaseURL string            `yaml:"ollama_base_url" koanf:"ollama_base_url"`
}

// IndexConfig holds chunking and bootstrap settings for the vector index.
type IndexConfig struct {
	ChunkSize         int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap      int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	BootstrapDaysBack int `yaml:"bootstrap_days_back" koanf:"bootstrap_days_back"`
	BootstrapLimit    int `yaml:"bootstrap_limit" koanf:"bootstrap_limit"`
}

// DefaultConfig returns the built-in defaults: port 8000, 1000/100
// chunking and a 30-day, 100-item index bootstrap.
func DefaultConfig() *Config {
	return &Config{
		Host:    "0.0.0.0",
		Port:    8000,
		DataDir: "./data",
		Auth: AuthConfig{
			TokenExpiryMinutes: 60,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		Index: IndexConfig{
			ChunkSize:         1000,
			ChunkOverlap:      100,
			BootstrapDaysBack: 30,
			BootstrapLimit:    100,
		},
	}
}
