package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SplitterConfig controls how document text is divided before embedding.
type SplitterConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// LLMConfig configures the chat model used for titles, extraction and synthesis.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// EmbeddingConfig configures the embedding model.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// QdrantConfig contains collection settings for the vector database.
// URL and API key come from the environment, never from the config file.
type QdrantConfig struct {
	ClaimsCollection string `yaml:"claims_collection"`
	ChunksCollection string `yaml:"chunks_collection"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// Config is the root application configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	StorePath string          `yaml:"store_path"`
	TopK      int             `yaml:"top_k"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, err
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// LoadDefault tries ./claimkit.yaml first, then ~/.config/claimkit/config.yaml.
// If neither exists, defaults are written to the user path and returned.
func LoadDefault() (*Config, string, error) {
	cwdPath := "claimkit.yaml"

	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}

	userPath, err := userConfigPath()

	if err != nil {
		return nil, "", err
	}

	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}

	cfg := Default()

	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}

	return cfg, userPath, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)

	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func Default() *Config {
	return &Config{
		DataDir:   "data",
		StorePath: "knowledge.db",
		TopK:      5,

		Splitter: SplitterConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},

		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   500,
		},

		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			BatchSize: 32,
		},

		Qdrant: QdrantConfig{
			ClaimsCollection: "knowledge_base",
			ChunksCollection: "chunks",
			TimeoutSecs:      15,
		},
	}
}

func userConfigPath() (string, error) {
	home, err := os.UserHomeDir()

	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "claimkit", "config.yaml"), nil
}

func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}

	if cfg.StorePath == "" {
		cfg.StorePath = def.StorePath
	}

	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}

	if cfg.Splitter.ChunkSize <= 0 {
		cfg.Splitter.ChunkSize = def.Splitter.ChunkSize
	}

	if cfg.Splitter.ChunkOverlap < 0 {
		cfg.Splitter.ChunkOverlap = def.Splitter.ChunkOverlap
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}

	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = def.LLM.Temperature
	}

	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}

	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}

	if cfg.Qdrant.ClaimsCollection == "" {
		cfg.Qdrant.ClaimsCollection = def.Qdrant.ClaimsCollection
	}

	if cfg.Qdrant.ChunksCollection == "" {
		cfg.Qdrant.ChunksCollection = def.Qdrant.ChunksCollection
	}

	if cfg.Qdrant.TimeoutSecs <= 0 {
		cfg.Qdrant.TimeoutSecs = def.Qdrant.TimeoutSecs
	}
}
