package llm

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	app_errors "intellimind/backend/internal/errors"
)

type rateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimitedClient caps next at perMinute requests. Calls over budget fail
// immediately as rate limited instead of queueing behind the provider. A
// non-positive perMinute disables the limit.
func NewRateLimitedClient(next Client, perMinute int) Client {
	if perMinute <= 0 {
		return next
	}
	return &rateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

func (c *rateLimitedClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.limiter.Allow() {
		return "", app_errors.NewLLMFailure(app_errors.LLMRateLimited, errors.New("request budget exhausted, try again shortly"))
	}
	return c.next.Complete(ctx, messages)
}
