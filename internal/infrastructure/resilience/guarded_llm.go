package resilience

import (
	"context"
	"fmt"

	"github.com/bookhaven/bookhaven-api/internal/domain/repository"
)

// GuardedLLMClient wraps an LLMClient behind a circuit breaker so a failing
// provider is rejected fast instead of burning the request timeout on every
// call.
type GuardedLLMClient struct {
	inner   repository.LLMClient
	breaker *CircuitBreaker
}

func NewGuardedLLMClient(inner repository.LLMClient, breaker *CircuitBreaker) *GuardedLLMClient {
	return &GuardedLLMClient{inner: inner, breaker: breaker}
}

func (g *GuardedLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.breaker.Execute(func() error {
		var genErr error
		out, genErr = g.inner.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (g *GuardedLLMClient) Name() string {
	return fmt.Sprintf("%s [guarded]", g.inner.Name())
}
