package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"mentor-chat/internal/config"
	"mentor-chat/internal/models"
)

// contentGenerator is the part of *genai.GenerativeModel the relay needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type GeminiProvider struct {
	client  *genai.Client
	model   contentGenerator
	timeout time.Duration
}

func NewGeminiProvider(apiKey, modelName, endpoint string, timeout time.Duration) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigurationError{Message: "Gemini API key is not configured"}
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := genai.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   client.GenerativeModel(modelName),
		timeout: timeout,
	}, nil
}

// newGeminiProviderWithModel wires an arbitrary generator; tests use it with fakes.
func newGeminiProviderWithModel(model contentGenerator, timeout time.Duration) *GeminiProvider {
	return &GeminiProvider{model: model, timeout: timeout}
}

func (p *GeminiProvider) Name() string { return config.ProviderGemini }

func (p *GeminiProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

// Generate sends the whole transcript as one text part and returns the text of
// the first candidate.
func (p *GeminiProvider) Generate(ctx context.Context, messages []models.Message) (string, error) {
	callCtx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.model.GenerateContent(callCtx, genai.Text(formatTranscript(messages)))
	if err != nil {
		return "", &TransportError{Provider: ProviderLabel(p.Name()), Err: err}
	}

	text := extractText(resp)
	if text == "" {
		return "", &MalformedResponseError{Provider: ProviderLabel(p.Name())}
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonUnspecified && cand.FinishReason != genai.FinishReasonStop {
			slog.Warn("Gemini candidate stopped early", "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}
	return text, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
