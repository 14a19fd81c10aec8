package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mentor-chat/internal/config"
	"mentor-chat/internal/models"
)

// Provider performs a single request/response round trip against a hosted
// text-generation API.
type Provider interface {
	Name() string
	Generate(ctx context.Context, messages []models.Message) (string, error)
}

// NewProvider builds the provider selected by cfg.RelayProvider. A missing
// secret yields a *ConfigurationError; callers may still serve requests with
// a MisconfiguredProvider so that every call reports it.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.RelayProvider {
	case config.ProviderOpenAI:
		p, err := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.RelayTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderGemini, "":
		p, err := NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEndpoint, cfg.RelayTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown relay provider %q", cfg.RelayProvider)
	}
}

// MisconfiguredProvider fails every call with the configuration error it was
// built from.
type MisconfiguredProvider struct {
	Provider string
	Err      *ConfigurationError
}

func (p *MisconfiguredProvider) Name() string { return p.Provider }

func (p *MisconfiguredProvider) Generate(ctx context.Context, messages []models.Message) (string, error) {
	return "", p.Err
}

// ProviderLabel is the display name used in user-facing relay errors.
func ProviderLabel(name string) string {
	switch name {
	case config.ProviderOpenAI:
		return "OpenAI"
	default:
		return "Gemini"
	}
}

// formatTranscript flattens role-tagged messages into the single prompt text
// the Gemini endpoint receives.
func formatTranscript(messages []models.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		var prefix string
		switch msg.Role {
		case models.RoleSystem:
			prefix = "Instructions: "
		case models.RoleUser:
			prefix = "User: "
		default:
			prefix = "Assistant: "
		}
		lines = append(lines, prefix+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
