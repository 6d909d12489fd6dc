// Package config loads and persists the warraq configuration file and
// resolves provider credentials from the environment.
//
// Configuration lives in TOML at ./warraq.toml unless a path is given.
// API keys never go into the TOML file; they are read from the process
// environment, optionally seeded from .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/warraq-labs/warraq/internal/chunker"
	"github.com/warraq-labs/warraq/internal/core/services"
)

// FileName is the config file looked up in the working directory when
// no explicit path is given.
const FileName = "warraq.toml"

// Credential environment variables, in provider resolution order.
const (
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// Provider names accepted by the embedding and generator sections.
const (
	ProviderAuto      = "auto"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// Config is the whole warraq configuration tree.
type Config struct {
	Corpus    Corpus    `toml:"corpus"`
	Server    Server    `toml:"server"`
	Chunking  Chunking  `toml:"chunking"`
	Retrieval Retrieval `toml:"retrieval"`
	Embedding Embedding `toml:"embedding"`
	Generator Generator `toml:"generator"`
	Watch     Watch     `toml:"watch"`
}

// Corpus locates the extraction pipeline's output on disk.
type Corpus struct {
	// TextsRoot is the directory holding one subdirectory of
	// extraction artifacts per document.
	TextsRoot string `toml:"texts_root"`

	// Inventory is the bibliographic inventory JSON path. Empty
	// means <texts_root>/inventory.json.
	Inventory string `toml:"inventory"`

	// CachePath is the embedding cache database path. Empty means
	// <config dir>/embeddings.db.
	CachePath string `toml:"cache_path"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// StaticDir, when set, is served at the web root for the
	// bundled reading UI.
	StaticDir string `toml:"static_dir"`

	// AllowedOrigins configures CORS. Empty allows any origin,
	// matching a locally run browser UI.
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Chunking tunes the document splitter.
type Chunking struct {
	MaxWords int `toml:"max_words"`
	Overlap  int `toml:"overlap"`
	MinWords int `toml:"min_words"`
}

// Retrieval tunes ranking and context assembly.
type Retrieval struct {
	LexicalWeight   float64 `toml:"lexical_weight"`
	SemanticWeight  float64 `toml:"semantic_weight"`
	MinScore        float64 `toml:"min_score"`
	TopK            int     `toml:"top_k"`
	MaxContextWords int     `toml:"max_context_words"`
}

// Embedding selects the embedding backend.
type Embedding struct {
	// Provider is "ollama", "openai" or "none". "none" pins the
	// index to lexical-only mode.
	Provider string `toml:"provider"`

	// Model and BaseURL override the provider's defaults when set
	// (ollama: nomic-embed-text at http://localhost:11434, openai:
	// text-embedding-3-small).
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`

	// MaxInputRunes truncates each text before it is sent to the
	// backend. Zero keeps the backend default.
	MaxInputRunes int `toml:"max_input_runes"`

	// RequestsPerMinute throttles hosted embedding APIs during bulk
	// indexing. Zero disables throttling.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// Generator selects the answer backend.
type Generator struct {
	// Provider is "auto", "gemini", "openai", "anthropic" or
	// "none". "auto" picks the first provider with a credential in
	// the environment, in that order.
	Provider string `toml:"provider"`

	GeminiModel    string `toml:"gemini_model"`
	OpenAIModel    string `toml:"openai_model"`
	AnthropicModel string `toml:"anthropic_model"`

	// MaxTokens caps the generated answer length.
	MaxTokens int `toml:"max_tokens"`
}

// Watch configures corpus directory watching.
type Watch struct {
	Enabled bool `toml:"enabled"`

	// DebounceSeconds is how long the watcher waits after the last
	// filesystem event before rebuilding.
	DebounceSeconds int `toml:"debounce_seconds"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Corpus: Corpus{
			TextsRoot: "corpus/texts",
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Chunking: Chunking{
			MaxWords: chunker.DefaultMaxWords,
			Overlap:  chunker.DefaultOverlap,
			MinWords: chunker.DefaultMinWords,
		},
		Retrieval: Retrieval{
			LexicalWeight:   services.DefaultLexicalWeight,
			SemanticWeight:  services.DefaultSemanticWeight,
			MinScore:        services.DefaultMinScore,
			TopK:            services.DefaultTopK,
			MaxContextWords: services.DefaultMaxContextWords,
		},
		Embedding: Embedding{
			Provider:      ProviderOllama,
			MaxInputRunes: 512,
		},
		Generator: Generator{
			Provider:       ProviderAuto,
			GeminiModel:    "gemini-2.0-flash",
			OpenAIModel:    "gpt-4o-mini",
			AnthropicModel: "claude-sonnet-4-5",
			MaxTokens:      2048,
		},
		Watch: Watch{
			DebounceSeconds: 2,
		},
	}
}

// Dir returns the warraq config directory, ~/.warraq.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".warraq"), nil
}

// Load reads the configuration at path, or ./warraq.toml when path is
// empty. A missing file yields the defaults; a malformed file is an
// error. Fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, or ./warraq.toml when path is
// empty, creating the directory as needed.
func Save(cfg Config, path string) error {
	if path == "" {
		path = FileName
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// InventoryPath resolves the effective inventory file location.
func (c Corpus) InventoryPath() string {
	if c.Inventory != "" {
		return c.Inventory
	}
	return filepath.Join(c.TextsRoot, "inventory.json")
}

// EffectiveCachePath resolves the embedding cache location, defaulting
// into the config directory.
func (c Corpus) EffectiveCachePath() (string, error) {
	if c.CachePath != "" {
		return c.CachePath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "embeddings.db"), nil
}

// LoadEnv seeds the process environment from .env files: the working
// directory first, then the config directory. Existing environment
// variables win over file values, and missing files are fine.
func LoadEnv() {
	_ = godotenv.Load(".env")
	if dir, err := Dir(); err == nil {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}
}

// WriteEnvKey sets key=value in the .env file at path, creating the
// file if needed and preserving any other entries.
func WriteEnvKey(path, key, value string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create env directory: %w", err)
	}

	entries, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read env file: %w", err)
		}
		entries = map[string]string{}
	}
	entries[key] = value

	if err := godotenv.Write(entries, path); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return os.Chmod(path, 0o600)
}
