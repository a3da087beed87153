/*
Package sentiment classifies crypto headlines as bullish, bearish or neutral using a
chat-completion provider. Classification never fails: every problem degrades to neutral.
*/
package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shanehull/cryptobriefs/internal/types"
)

const systemPrompt = "You are a crypto market sentiment classifier. Your task is to read crypto news headlines and classify short-term market sentiment as exactly one of three labels: bullish, bearish, or neutral. Respond with ONLY ONE WORD: 'bullish', 'bearish', or 'neutral'. No explanation."

const userPromptFormat = "Classify the sentiment of this crypto news headline:\n\n%q\n\nAnswer with ONLY one word: bullish, bearish, or neutral."

// Provider sends one system + user prompt pair and returns the raw answer.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// Classifier wraps a Provider with a per-call timeout and strict parsing.
type Classifier struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewClassifier returns a classifier. A nil provider yields a disabled
// classifier that answers neutral for every headline.
func NewClassifier(provider Provider, timeout time.Duration, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{provider: provider, timeout: timeout, logger: logger}
}

// Enabled reports whether a provider is configured.
func (c *Classifier) Enabled() bool {
	return c != nil && c.provider != nil
}

// Classify returns the sentiment of a headline. Missing credentials, transport
// errors, timeouts and unrecognized answers all produce Neutral.
func (c *Classifier) Classify(ctx context.Context, title string) types.Sentiment {
	if !c.Enabled() {
		return types.Neutral
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.provider.Complete(ctx, systemPrompt, UserPrompt(title))
	if err != nil {
		c.logger.Warn("sentiment classification failed, using neutral",
			"provider", c.provider.Name(), "title", title, "error", err)
		return types.Neutral
	}

	s := types.ParseSentiment(raw)
	if s == types.Neutral && raw != "" {
		c.logger.Debug("sentiment answer parsed as neutral", "provider", c.provider.Name(), "raw", raw)
	}
	return s
}

// UserPrompt embeds the headline into the classification prompt.
func UserPrompt(title string) string {
	return fmt.Sprintf(userPromptFormat, title)
}
