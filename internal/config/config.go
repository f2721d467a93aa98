// Package config loads the application configuration from YAML with
// sensible defaults, so the CLI works out of the box.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkingConfig configures how transcripts are split into chunks.
type ChunkingConfig struct {
	WindowSize int `yaml:"window_size"`
	Overlap    int `yaml:"overlap"`
}

// OllamaConfig holds connection details for a local Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// OpenAIConfig holds connection details for an OpenAI-compatible endpoint.
// The API key itself comes from the environment, never from the file.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	Type   string       `yaml:"type"` // "ollama" or "openai"
	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI OpenAIConfig `yaml:"openai"`
}

// GenerationConfig selects and configures the answer-generation backend.
type GenerationConfig struct {
	Backend     string       `yaml:"backend"` // "external" or "none"
	Type        string       `yaml:"type"`    // "openai" or "ollama"
	Ollama      OllamaConfig `yaml:"ollama"`
	OpenAI      OpenAIConfig `yaml:"openai"`
	TimeoutSecs int          `yaml:"timeout_secs"`
}

// QueryConfig tunes retrieval and context assembly.
type QueryConfig struct {
	TopK            int `yaml:"top_k"`
	MaxContextChars int `yaml:"max_context_chars"`
}

// ServerConfig configures the REST API server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root application configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	WatchDir   string           `yaml:"watch_dir"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Generation GenerationConfig `yaml:"generation"`
	Query      QueryConfig      `yaml:"query"`
	Server     ServerConfig     `yaml:"server"`
}

// Load reads a config from path. A missing file returns the defaults.
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

// LoadDefault tries ./transcriptrag.yaml first, then the user config dir.
func LoadDefault() (*Config, string, error) {
	cwdPath := "transcriptrag.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
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

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "transcriptrag", "config.yaml"), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir: "./data",
		Chunking: ChunkingConfig{
			WindowSize: 500,
			Overlap:    50,
		},
		Embedder: EmbedderConfig{
			Type:   "ollama",
			Ollama: OllamaConfig{BaseURL: "http://localhost:11434", Model: "nomic-embed-text"},
			OpenAI: OpenAIConfig{
				BaseURL:     "https://api.openai.com/v1",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "text-embedding-3-small",
				TimeoutSecs: 30,
				BatchSize:   32,
			},
		},
		Generation: GenerationConfig{
			Backend: "external",
			Type:    "openai",
			Ollama:  OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3.2"},
			OpenAI: OpenAIConfig{
				BaseURL:   "https://api.openai.com/v1",
				APIKeyEnv: "OPENAI_API_KEY",
				Model:     "gpt-4o-mini",
			},
			TimeoutSecs: 60,
		},
		Query: QueryConfig{
			TopK:            5,
			MaxContextChars: 4000,
		},
		Server: ServerConfig{Addr: "127.0.0.1:5000"},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.Chunking.WindowSize == 0 {
		cfg.Chunking.WindowSize = def.Chunking.WindowSize
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = def.Chunking.Overlap
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.OpenAI.APIKeyEnv == "" {
		cfg.Embedder.OpenAI.APIKeyEnv = def.Embedder.OpenAI.APIKeyEnv
	}
	if cfg.Generation.Backend == "" {
		cfg.Generation.Backend = def.Generation.Backend
	}
	if cfg.Generation.Type == "" {
		cfg.Generation.Type = def.Generation.Type
	}
	if cfg.Generation.OpenAI.APIKeyEnv == "" {
		cfg.Generation.OpenAI.APIKeyEnv = def.Generation.OpenAI.APIKeyEnv
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = def.Generation.TimeoutSecs
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = def.Query.TopK
	}
	if cfg.Query.MaxContextChars == 0 {
		cfg.Query.MaxContextChars = def.Query.MaxContextChars
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
}
