// Package cli implements the warraq command line interface.
// It wires the service stack from configuration once per invocation
// and hands the driving ports to the individual commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/warraq-labs/warraq/internal/adapters/driven/ai"
	"github.com/warraq-labs/warraq/internal/adapters/driven/corpus/file"
	vcsqlite "github.com/warraq-labs/warraq/internal/adapters/driven/vectorcache/sqlite"
	"github.com/warraq-labs/warraq/internal/chunker"
	"github.com/warraq-labs/warraq/internal/config"
	"github.com/warraq-labs/warraq/internal/core/ports/driven"
	"github.com/warraq-labs/warraq/internal/core/ports/driving"
	"github.com/warraq-labs/warraq/internal/core/services"
	"github.com/warraq-labs/warraq/internal/logger"
)

// version is overridden at release builds via -ldflags.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

// Services used by the commands. Wired lazily by ensureServices so
// commands like version never touch the network; tests install stubs
// directly.
var (
	appCfg config.Config

	retrievalService driving.RetrievalService
	chatService      driving.ChatService

	aiResult    *ai.InitResult
	vectorCache *vcsqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "warraq",
	Short: "Hybrid search and chat over a digitised text corpus",
	Long: `Warraq indexes the extraction artifacts of a digitised text corpus
and answers questions about it.

Search blends BM25 keyword scoring with embedding similarity; chat
streams generator answers grounded in the retrieved excerpts. Without
an embedding backend everything still works in keyword-only mode.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ./warraq.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command and releases whatever ensureServices
// acquired.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// loadConfig seeds the environment from .env files and reads the
// config file. A missing file yields defaults.
func loadConfig() (config.Config, error) {
	config.LoadEnv()
	return config.Load(cfgPath)
}

// ensureServices wires the service stack on first use. Overrides
// mutate the loaded config before any adapter is built, which is how
// serve applies --lexical-only. Calling it again is a no-op, so tests
// that pre-install stub services keep them.
func ensureServices(overrides ...func(*config.Config)) error {
	if retrievalService != nil {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	for _, override := range overrides {
		override(&cfg)
	}
	appCfg = cfg

	aiResult = ai.Init(cfg)
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}

	var cache driven.VectorCache
	if cfg.Embedding.Provider != config.ProviderNone {
		cachePath, err := cfg.Corpus.EffectiveCachePath()
		if err != nil {
			logger.Warn("embedding cache unavailable: %v", err)
		} else if store, err := vcsqlite.NewStore(cachePath); err != nil {
			logger.Warn("embedding cache unavailable: %v", err)
		} else {
			vectorCache = store
			cache = store
		}
	}

	corpus := file.NewStore(cfg.Corpus.TextsRoot, cfg.Corpus.InventoryPath())
	splitter := chunker.New(
		chunker.WithMaxWords(cfg.Chunking.MaxWords),
		chunker.WithOverlap(cfg.Chunking.Overlap),
		chunker.WithMinWords(cfg.Chunking.MinWords),
	)

	index := services.NewIndexService(corpus, aiResult.Embedder, cache, splitter)
	retrieval := services.NewRetrievalService(index, aiResult.Embedder, services.RetrievalConfig{
		LexicalWeight:  cfg.Retrieval.LexicalWeight,
		SemanticWeight: cfg.Retrieval.SemanticWeight,
		MinScore:       cfg.Retrieval.MinScore,
		TopK:           cfg.Retrieval.TopK,
	})

	retrievalService = retrieval
	chatService = services.NewChatService(retrieval, aiResult.Generator, cfg.Retrieval.MaxContextWords)
	return nil
}

// closeServices releases provider clients and the embedding cache.
// Safe to call when nothing was wired.
func closeServices() {
	if vectorCache != nil {
		if err := vectorCache.Close(); err != nil {
			logger.Warn("close embedding cache: %v", err)
		}
		vectorCache = nil
	}
	if aiResult != nil {
		aiResult.Close()
		aiResult = nil
	}
}
