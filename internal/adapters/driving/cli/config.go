package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/warraq-labs/warraq/internal/adapters/driven/ai"
	"github.com/warraq-labs/warraq/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration and credentials",
	Long: `View and manage the warraq configuration file and provider
credentials.

Settings live in TOML; API keys never do. Keys are read from the
environment, seeded from .env files in the working directory and the
config directory.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	RunE:  runConfigInit,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [provider]",
	Short: "Store an API key for a provider",
	Long: `Prompt for an API key and store it in the .env file under the config
directory. The provider is one of: gemini, openai, anthropic.

Input is hidden when run in a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetKey,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate provider configuration",
	Long: `Resolve the configured embedding and generator providers and ping
each one. Exits non-zero when a configured provider is unreachable.`,
	RunE: runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cachePath, err := cfg.Corpus.EffectiveCachePath()
	if err != nil {
		cachePath = "(unresolvable: " + err.Error() + ")"
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()

	cmd.Println("[Corpus]")
	cmd.Printf("  Texts root: %s\n", cfg.Corpus.TextsRoot)
	cmd.Printf("  Inventory:  %s\n", cfg.Corpus.InventoryPath())
	cmd.Printf("  Cache:      %s\n", cachePath)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Weights:   %.2f lexical / %.2f semantic\n",
		cfg.Retrieval.LexicalWeight, cfg.Retrieval.SemanticWeight)
	cmd.Printf("  Min score: %.2f\n", cfg.Retrieval.MinScore)
	cmd.Printf("  Top K:     %d\n", cfg.Retrieval.TopK)
	cmd.Printf("  Context:   %d words\n", cfg.Retrieval.MaxContextWords)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", cfg.Embedding.Provider)
	if cfg.Embedding.Model != "" {
		cmd.Printf("  Model:    %s\n", cfg.Embedding.Model)
	} else {
		cmd.Printf("  Model:    (provider default)\n")
	}
	cmd.Println()

	cmd.Println("[Generator]")
	cmd.Printf("  Provider: %s\n", cfg.Generator.Provider)
	cmd.Println("  Credentials:")
	for _, env := range []string{config.EnvGeminiKey, config.EnvOpenAIKey, config.EnvAnthropicKey} {
		if key := os.Getenv(env); key != "" {
			cmd.Printf("    %s = %s\n", env, maskAPIKey(key))
		} else {
			cmd.Printf("    %s   (not set)\n", env)
		}
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Server.StaticDir != "" {
		cmd.Printf("  Static:  %s\n", cfg.Server.StaticDir)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgPath
	if path == "" {
		path = config.FileName
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.Save(config.Default(), path); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	env, ok := providerEnv(args[0])
	if !ok {
		return fmt.Errorf("unknown provider %q (expected gemini, openai or anthropic)", args[0])
	}

	cmd.Printf("Enter API key for %s: ", args[0])
	key := readPassword()
	cmd.Println()
	if key == "" {
		return errors.New("no key entered")
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	envPath := filepath.Join(dir, ".env")
	if err := config.WriteEnvKey(envPath, env, key); err != nil {
		return err
	}
	cmd.Printf("Stored %s in %s\n", env, envPath)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	failed := false

	switch cfg.Embedding.Provider {
	case "", config.ProviderNone:
		cmd.Println("Embedding: disabled, search runs keyword-only")
	default:
		if err := ai.ValidateEmbedding(cfg.Embedding); err != nil {
			cmd.Printf("Embedding (%s): FAILED: %v\n", cfg.Embedding.Provider, err)
			failed = true
		} else {
			cmd.Printf("Embedding (%s): OK\n", cfg.Embedding.Provider)
		}
	}

	name, err := ai.GeneratorProvider(cfg.Generator)
	switch {
	case cfg.Generator.Provider == config.ProviderNone:
		cmd.Println("Generator: disabled, chat answers with setup guidance")
	case err != nil:
		cmd.Printf("Generator: FAILED: %v\n", err)
		failed = true
	case name == "":
		cmd.Printf("Generator: not configured (set %s, %s or %s)\n",
			config.EnvGeminiKey, config.EnvOpenAIKey, config.EnvAnthropicKey)
	default:
		if err := ai.ValidateGenerator(cfg.Generator); err != nil {
			cmd.Printf("Generator (%s): FAILED: %v\n", name, err)
			failed = true
		} else {
			cmd.Printf("Generator (%s): OK\n", name)
		}
	}

	if failed {
		return errors.New("configuration check failed")
	}
	return nil
}

// providerEnv maps a provider name to its credential variable.
func providerEnv(provider string) (string, bool) {
	switch provider {
	case config.ProviderGemini:
		return config.EnvGeminiKey, true
	case config.ProviderOpenAI:
		return config.EnvOpenAIKey, true
	case config.ProviderAnthropic:
		return config.EnvAnthropicKey, true
	default:
		return "", false
	}
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read without echo first
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
