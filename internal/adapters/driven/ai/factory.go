// Package ai provides factory functions for creating AI service adapters.
//
// Provider selection happens here, once, at startup. Services degrade
// to nil rather than aborting: a missing embedder pins the index to
// lexical-only mode, a missing generator makes chat answer with setup
// guidance.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	ollamaembed "github.com/warraq-labs/warraq/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/warraq-labs/warraq/internal/adapters/driven/embedding/openai"
	anthropicgen "github.com/warraq-labs/warraq/internal/adapters/driven/generator/anthropic"
	geminigen "github.com/warraq-labs/warraq/internal/adapters/driven/generator/gemini"
	openaigen "github.com/warraq-labs/warraq/internal/adapters/driven/generator/openai"
	"github.com/warraq-labs/warraq/internal/config"
	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	Embedder  driven.EmbeddingService // Nil pins the index to lexical-only mode.
	Generator driven.Generator        // Nil makes chat answer with setup guidance.
	Warnings  []string                // Non-fatal issues that caused degradation.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedder != nil {
		r.Embedder.Close()
	}
	if r.Generator != nil {
		r.Generator.Close()
	}
}

// Init builds both AI services from configuration. Initialisation
// never fails; unreachable or unconfigured backends are reported in
// Warnings and the corresponding service is nil.
func Init(cfg config.Config) *InitResult {
	res := &InitResult{}

	embedder, err := CreateAndValidateEmbedder(cfg.Embedding)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error()+"; search runs lexical-only")
	}
	res.Embedder = embedder

	gen, err := CreateAndValidateGenerator(cfg.Generator)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error()+"; chat answers with setup guidance")
	} else if gen == nil && cfg.Generator.Provider != config.ProviderNone {
		res.Warnings = append(res.Warnings,
			"no generator credential found ("+config.EnvGeminiKey+", "+config.EnvOpenAIKey+" or "+config.EnvAnthropicKey+"); chat answers with setup guidance")
	}
	res.Generator = gen

	return res
}

// CreateAndValidateEmbedder creates an embedding service and validates
// connectivity. Returns nil without error when embeddings are
// deliberately disabled.
func CreateAndValidateEmbedder(cfg config.Embedding) (driven.EmbeddingService, error) {
	svc, err := CreateEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateGenerator creates a generator and validates
// connectivity. Returns nil without error when no backend is
// configured.
func CreateAndValidateGenerator(cfg config.Generator) (driven.Generator, error) {
	gen, err := CreateGenerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneratorUnavailable, err)
	}
	if gen == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := gen.Ping(ctx); err != nil {
		gen.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneratorUnavailable, err)
	}
	return gen, nil
}

// ValidateEmbedding checks the embedding configuration by creating a
// service and pinging it. Used by `warraq config check`.
func ValidateEmbedding(cfg config.Embedding) error {
	svc, err := CreateEmbedder(cfg)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateGenerator checks the generator configuration by creating a
// service and pinging it. Used by `warraq config check`.
func ValidateGenerator(cfg config.Generator) error {
	gen, err := CreateGenerator(cfg)
	if err != nil {
		return err
	}
	if gen == nil {
		return nil
	}
	defer gen.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return gen.Ping(ctx)
}

// CreateEmbedder creates the configured embedding service. Returns nil
// when the provider is "none" or unset.
func CreateEmbedder(cfg config.Embedding) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "", config.ProviderNone:
		return nil, nil

	case config.ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			MaxInputRunes: cfg.MaxInputRunes,
		}), nil

	case config.ProviderOpenAI:
		key := os.Getenv(config.EnvOpenAIKey)
		if key == "" {
			return nil, fmt.Errorf("openai embeddings need %s", config.EnvOpenAIKey)
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            key,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			MaxInputRunes:     cfg.MaxInputRunes,
			RequestsPerMinute: cfg.RequestsPerMinute,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// CreateGenerator creates the configured generator. Returns nil when
// the provider is "none", or when "auto" finds no credential.
func CreateGenerator(cfg config.Generator) (driven.Generator, error) {
	provider, key, err := resolveGenerator(cfg.Provider)
	if err != nil {
		return nil, err
	}

	switch provider {
	case "":
		return nil, nil

	case config.ProviderGemini:
		return geminigen.NewGenerator(geminigen.Config{
			APIKey:    key,
			Model:     cfg.GeminiModel,
			MaxTokens: cfg.MaxTokens,
		})

	case config.ProviderOpenAI:
		return openaigen.NewGenerator(openaigen.Config{
			APIKey:    key,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.MaxTokens,
		})

	case config.ProviderAnthropic:
		return anthropicgen.NewGenerator(anthropicgen.Config{
			APIKey:    key,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.MaxTokens,
		})

	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", provider)
	}
}

// GeneratorProvider reports which backend the configuration resolves
// to, without constructing anything. Empty means no generator will be
// available.
func GeneratorProvider(cfg config.Generator) (string, error) {
	name, _, err := resolveGenerator(cfg.Provider)
	return name, err
}

// resolveGenerator maps the configured provider name to a concrete
// backend and its credential. "auto" picks the first provider with a
// key in the environment, in gemini, openai, anthropic order; it
// resolves to nothing when no key is set.
func resolveGenerator(provider string) (name, key string, err error) {
	switch provider {
	case "", config.ProviderAuto:
		for _, p := range []struct{ name, env string }{
			{config.ProviderGemini, config.EnvGeminiKey},
			{config.ProviderOpenAI, config.EnvOpenAIKey},
			{config.ProviderAnthropic, config.EnvAnthropicKey},
		} {
			if key := os.Getenv(p.env); key != "" {
				return p.name, key, nil
			}
		}
		return "", "", nil

	case config.ProviderNone:
		return "", "", nil

	case config.ProviderGemini:
		return requireKey(provider, config.EnvGeminiKey)

	case config.ProviderOpenAI:
		return requireKey(provider, config.EnvOpenAIKey)

	case config.ProviderAnthropic:
		return requireKey(provider, config.EnvAnthropicKey)

	default:
		return "", "", fmt.Errorf("unsupported generator provider: %s", provider)
	}
}

func requireKey(provider, env string) (string, string, error) {
	key := os.Getenv(env)
	if key == "" {
		return "", "", fmt.Errorf("%s generator needs %s", provider, env)
	}
	return provider, key, nil
}
