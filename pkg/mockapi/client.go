// Package mockapi 模拟远端 API：所有读写都经过这里，按配置注入网络延迟与随机故障。
package mockapi

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/monitoring"
	"corp_learning_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

var ErrSimulatedFailure = errors.New("simulated server error")

type Client struct {
	mu          sync.Mutex
	latency     time.Duration
	jitter      time.Duration
	failureRate float64
	rng         *rand.Rand
}

type Option func(*Client)

func WithLatency(latency, jitter time.Duration) Option {
	return func(c *Client) {
		c.latency = latency
		c.jitter = jitter
	}
}

func WithFailureRate(rate float64) Option {
	return func(c *Client) {
		c.failureRate = rate
	}
}

func WithRand(r *rand.Rand) Option {
	return func(c *Client) {
		c.rng = r
	}
}

func New(opts ...Option) *Client {
	c := &Client{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure 热更新延迟与故障率（配置文件变更时调用）
func (c *Client) Configure(latency, jitter time.Duration, failureRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency = latency
	c.jitter = jitter
	c.failureRate = failureRate
}

func (c *Client) Settings() (latency, jitter time.Duration, failureRate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency, c.jitter, c.failureRate
}

// plan 决定本次请求的延迟以及是否注入故障
func (c *Client) plan() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.latency
	if c.jitter > 0 {
		d += time.Duration(c.rng.Int63n(int64(c.jitter)))
	}
	fail := c.failureRate > 0 && c.rng.Float64() < c.failureRate
	return d, fail
}

// Do 模拟一次往返：等待延迟，可能失败，然后执行 fn。
// NotFound / InvalidState / 校验类错误原样返回，其余错误包装为 UpstreamError。
func (c *Client) Do(ctx context.Context, method, path string, fn func(ctx context.Context) error) error {
	op := method + " " + path
	start := time.Now()
	delay, fail := c.plan()
	ctx, span := tracing.Start(ctx, "mockapi "+op,
		attribute.Int64("mockapi.delay_ms", delay.Milliseconds()),
		attribute.Bool("mockapi.injected_failure", fail))

	err := sleep(ctx, delay)
	if err == nil && fail {
		err = ErrSimulatedFailure
	}
	if err == nil {
		err = fn(ctx)
	}
	err = classify(op, err)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	tracing.EndSpan(span, err)
	monitoring.MockLatency.WithLabelValues(method, outcome).Observe(time.Since(start).Seconds())
	return err
}

// Fetch 是带返回值的 Do
func Fetch[T any](ctx context.Context, c *Client, method, path string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.Do(ctx, method, path, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, util.ErrNotFound),
		errors.Is(err, util.ErrInvalidState),
		errors.Is(err, util.ErrValidation),
		errors.Is(err, util.ErrUpstream),
		errors.Is(err, util.ErrPermissionDenied),
		errors.Is(err, util.ErrInvalidPassword):
		return err
	}
	return &util.UpstreamError{Op: op, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
