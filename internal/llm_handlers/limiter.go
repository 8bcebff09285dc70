package llmHandlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("too many assistant requests, slow down")

type limiterKey struct{}

// WithCaller tags ctx with the key the rate limiter buckets on
func WithCaller(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, limiterKey{}, key)
}

// RateLimitedClient caps how often each caller may hit the wrapped client
type RateLimitedClient struct {
	next  Client
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimitedClient allows perMinute calls per caller. perMinute <= 0 disables limiting.
func NewRateLimitedClient(next Client, perMinute int) Client {
	if perMinute <= 0 {
		return next
	}
	burst := perMinute / 4
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		next:     next,
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (c *RateLimitedClient) limiterFor(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[key]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.limiters[key] = l
	}
	return l
}

func (c *RateLimitedClient) Chat(ctx context.Context, systemMessage string, messages []Message, opts ...ChatOption) (string, error) {
	key, _ := ctx.Value(limiterKey{}).(string)
	if !c.limiterFor(key).Allow() {
		return "", ErrRateLimited
	}
	return c.next.Chat(ctx, systemMessage, messages, opts...)
}
