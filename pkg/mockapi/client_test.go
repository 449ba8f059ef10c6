package mockapi

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"corp_learning_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoPassesThroughDomainErrors(t *testing.T) {
	c := New()
	ctx := context.Background()

	err := c.Do(ctx, "GET", "/api/courses/x", func(context.Context) error {
		return util.NewNotFound("course", "x")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrNotFound)
	assert.NotErrorIs(t, err, util.ErrUpstream)
	assert.Equal(t, "course", util.NotFoundKind(err))

	err = c.Do(ctx, "POST", "/api/attempts", func(context.Context) error {
		return util.ErrNoActiveAttempt
	})
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestDoWrapsOtherErrorsAsUpstream(t *testing.T) {
	c := New()
	boom := errors.New("disk full")

	err := c.Do(context.Background(), "POST", "/api/progress", func(context.Context) error {
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrUpstream)
	assert.ErrorIs(t, err, boom)

	var up *util.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, "POST /api/progress", up.Op)
}

func TestDoInjectsFailures(t *testing.T) {
	c := New(WithFailureRate(1), WithRand(rand.New(rand.NewSource(1))))
	called := false

	err := c.Do(context.Background(), "GET", "/api/assessments", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, util.ErrUpstream)
	assert.ErrorIs(t, err, ErrSimulatedFailure)
	assert.False(t, called, "failed request must not reach the store")
}

func TestDoHonoursContextCancellation(t *testing.T) {
	c := New(WithLatency(time.Hour, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Do(ctx, "GET", "/slow", func(context.Context) error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, util.ErrUpstream)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchReturnsValue(t *testing.T) {
	c := New(WithLatency(time.Millisecond, time.Millisecond))

	v, err := Fetch(context.Background(), c, "GET", "/answer", func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Fetch(context.Background(), c, "GET", "/answer", func(context.Context) (int, error) {
		return 7, errors.New("nope")
	})
	assert.Error(t, err)
	assert.Zero(t, v)
}

func TestConfigure(t *testing.T) {
	c := New()
	c.Configure(200*time.Millisecond, 50*time.Millisecond, 0.25)

	latency, jitter, rate := c.Settings()
	assert.Equal(t, 200*time.Millisecond, latency)
	assert.Equal(t, 50*time.Millisecond, jitter)
	assert.Equal(t, 0.25, rate)
}
