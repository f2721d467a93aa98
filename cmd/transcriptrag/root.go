package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goodanalysis/transcriptrag/internal/adapters/captions"
	"github.com/goodanalysis/transcriptrag/internal/adapters/embedding"
	"github.com/goodanalysis/transcriptrag/internal/adapters/llm"
	"github.com/goodanalysis/transcriptrag/internal/adapters/vectordb"
	"github.com/goodanalysis/transcriptrag/internal/config"
	"github.com/goodanalysis/transcriptrag/internal/domain/entities"
	"github.com/goodanalysis/transcriptrag/internal/domain/ports"
	"github.com/goodanalysis/transcriptrag/internal/domain/usecases"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "transcriptrag",
		Short:         "Semantic search and Q&A over video transcripts",
		Long:          `Ingest video transcripts, search them semantically and ask questions answered from the retrieved context.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ./transcriptrag.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Override the data directory")

	rootCmd.AddCommand(
		NewIngestCmd(),
		NewQueryCmd(),
		NewListCmd(),
		NewViewCmd(),
		NewDeleteCmd(),
		NewServeCmd(),
		NewWatchCmd(),
	)

	return rootCmd
}

// app bundles the wired dependencies a command needs.
type app struct {
	cfg    *config.Config
	store  *vectordb.SQLiteStore
	ingest *usecases.IngestUseCase
	query  *usecases.QueryUseCase
	parser *captions.Parser
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildApp loads the configuration and wires the adapters behind the use cases.
func buildApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		return nil, err
	}

	store, err := vectordb.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	ingest, err := usecases.NewIngestUseCase(embedder, store, cfg.Chunking.WindowSize, cfg.Chunking.Overlap)
	if err != nil {
		store.Close()
		return nil, err
	}

	query := usecases.NewQueryUseCase(embedder, store, generator, cfg.Query.TopK).
		WithContextLimit(cfg.Query.MaxContextChars).
		WithGenerationTimeout(time.Duration(cfg.Generation.TimeoutSecs) * time.Second)

	return &app{
		cfg:    cfg,
		store:  store,
		ingest: ingest,
		query:  query,
		parser: captions.NewParser(),
	}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	flags := cmd.Root().PersistentFlags()
	if path, _ := flags.GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if dir, _ := flags.GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func buildEmbedder(cfg *config.Config) (ports.EmbeddingService, error) {
	switch cfg.Embedder.Type {
	case "ollama":
		return embedding.NewOllamaAdapter(cfg.Embedder.Ollama.BaseURL, cfg.Embedder.Ollama.Model), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		key := os.Getenv(oc.APIKeyEnv)
		if key == "" {
			return nil, entities.NewError(entities.KindConfiguration, "embedder API key env %s is not set", oc.APIKeyEnv)
		}
		return embedding.NewOpenAIAdapter(embedding.OpenAIConfig{
			BaseURL:   oc.BaseURL,
			APIKey:    key,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
			BatchSize: oc.BatchSize,
		})
	default:
		return nil, entities.NewError(entities.KindConfiguration, "unknown embedder type %q", cfg.Embedder.Type)
	}
}

// buildGenerator returns nil when generation is disabled; queries then fall
// back to deterministic formatting.
func buildGenerator(cfg *config.Config) (ports.GenerationService, error) {
	if cfg.Generation.Backend == "none" {
		return nil, nil
	}
	switch cfg.Generation.Type {
	case "ollama":
		return llm.NewOllamaAdapter(cfg.Generation.Ollama.BaseURL, cfg.Generation.Ollama.Model), nil
	case "openai":
		oc := cfg.Generation.OpenAI
		key := os.Getenv(oc.APIKeyEnv)
		if key == "" {
			return nil, entities.NewError(entities.KindConfiguration, "generation API key env %s is not set", oc.APIKeyEnv)
		}
		return llm.NewOpenAIAdapter(oc.BaseURL, key, oc.Model, time.Duration(cfg.Generation.TimeoutSecs)*time.Second)
	default:
		return nil, entities.NewError(entities.KindConfiguration, "unknown generation type %q", cfg.Generation.Type)
	}
}
