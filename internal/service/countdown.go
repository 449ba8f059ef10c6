package service

import (
	"context"
	"sync"
	"time"
)

// Ticker 抽象周期触发源，测试中可替换为手动驱动的 channel
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Countdown 每收到一次 tick 调用 onTick(deltaSeconds)，onTick 返回 true 表示作答已结束。
// time.Ticker 在接收方阻塞时会丢弃 tick，因此 delta 按距上次计费经过的周期数计算，
// 迟到的 tick 会补扣被丢弃的时间。
type Countdown struct {
	interval  time.Duration
	newTicker TickerFactory
	onTick    func(delta int) bool
	clock     Clock

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type CountdownOption func(*Countdown)

// CountdownClock 替换计算经过时间所用的时钟
func CountdownClock(c Clock) CountdownOption {
	return func(cd *Countdown) { cd.clock = c }
}

func NewCountdown(interval time.Duration, factory TickerFactory, onTick func(delta int) bool, opts ...CountdownOption) *Countdown {
	if factory == nil {
		factory = NewTimeTicker
	}
	if interval <= 0 {
		interval = time.Second
	}
	c := &Countdown{
		interval:  interval,
		newTicker: factory,
		onTick:    onTick,
		clock:     systemClock{},
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run 阻塞直到 onTick 返回 true、ctx 取消或 Stop 被调用
func (c *Countdown) Run(ctx context.Context) {
	defer close(c.done)

	ticker := c.newTicker(c.interval)
	defer ticker.Stop()

	delta := int(c.interval / time.Second)
	if delta < 1 {
		delta = 1
	}
	// next 为下一个应计费的周期边界
	next := c.clock.Now().Add(c.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C():
			periods := c.periodsDue(next)
			next = next.Add(time.Duration(periods) * c.interval)
			if c.onTick(periods * delta) {
				return
			}
		}
	}
}

// periodsDue 收到 tick 时至少计一个周期，另加 next 之后已完整经过的周期
func (c *Countdown) periodsDue(next time.Time) int {
	late := c.clock.Now().Sub(next)
	if late <= 0 {
		return 1
	}
	return 1 + int(late/c.interval)
}

func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done 在 Run 返回后关闭
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}
