package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/shanehull/cryptobriefs/internal/config"
)

// The model must answer with a single word.
const maxAnswerTokens = 3

var errEmptyResponse = errors.New("empty response")

// OpenAIProvider talks to any OpenAI-compatible chat completion endpoint,
// DeepSeek included.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates a provider. An empty baseURL uses the OpenAI default.
func NewOpenAIProvider(name, apiKey, baseURL, model string, timeout time.Duration) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model, name: name}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(maxAnswerTokens),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", p.name, errEmptyResponse)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// AnthropicProvider uses the Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewAnthropicProvider(apiKey, baseURL, model string, timeout time.Duration) *AnthropicProvider {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, anthropicoption.WithRequestTimeout(timeout))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client, model: anthropic.Model(model)}
}

func (p *AnthropicProvider) Name() string { return config.ProviderAnthropic }

func (p *AnthropicProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       p.model,
		MaxTokens:   maxAnswerTokens,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic: %w", errEmptyResponse)
	}

	return strings.TrimSpace(resp.Content[0].Text), nil
}

// GeminiProvider uses the Gemini API backend of the genai SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return config.ProviderGemini }

func (p *GeminiProvider) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// NewFromConfig builds the classifier for the configured provider. Without an
// API key the classifier is disabled and every headline stays neutral.
func NewFromConfig(ctx context.Context, cfg config.SentimentConfig, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		logger.Warn("sentiment classifier disabled", "provider", cfg.Provider, "error", config.ErrMissingSentimentKey)
		return NewClassifier(nil, cfg.Timeout, logger), nil
	}

	var provider Provider
	switch cfg.Provider {
	case config.ProviderDeepSeek, config.ProviderOpenAI:
		provider = NewOpenAIProvider(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	case config.ProviderAnthropic:
		provider = NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
	case config.ProviderGemini:
		p, err := NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, fmt.Errorf("%w: got %q", config.ErrUnknownProvider, cfg.Provider)
	}

	logger.Info("sentiment classifier ready", "provider", provider.Name(), "model", cfg.Model)
	return NewClassifier(provider, cfg.Timeout, logger), nil
}
