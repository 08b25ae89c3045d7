package llm

import (
	"context"
	"fmt"

	"github.com/rohan/flashdeck/internal/logger"
)

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with cache, retry, and logging middleware.
func NewProvider(ctx context.Context, cfg Config, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Middleware order: caller → cache → retry → logging → base.
	// The cache sits outermost so a hit skips retry bookkeeping entirely.
	logged := WithLogging(base, log)
	retried := WithRetry(logged, cfg.Retry)
	cached := WithCache(retried, cfg.CacheSize)

	return cached, nil
}
