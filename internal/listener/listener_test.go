package listener

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	tests := []struct {
		payload string
		want    []string
	}{
		{"campaigns", []string{"campaigns"}},
		{" campaigns ", []string{"campaigns"}},
		{"campaign:7", []string{"campaign:7", "campaigns"}},
		{"payouts:7", []string{"payouts:7", "campaign:7", "campaigns"}},
		{"", []string{"campaigns", "campaign", "payouts"}},
		{"campaign:x", []string{"campaigns", "campaign", "payouts"}},
		{"payouts:0", []string{"campaigns", "campaign", "payouts"}},
		{"campaigns:1", []string{"campaigns", "campaign", "payouts"}},
		{"something else", []string{"campaigns", "campaign", "payouts"}},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			assert.Equal(t, tt.want, Keys(tt.payload))
		})
	}
}

type fakeSub struct {
	events chan event
	closed chan struct{}
	once   sync.Once
}

func (s *fakeSub) Wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case ev := <-s.events:
		return ev.payload, ev.err
	}
}

func (s *fakeSub) Close() { s.once.Do(func() { close(s.closed) }) }

type fakeSubscriber struct {
	subs    chan *fakeSub
	mu      sync.Mutex
	listens int
	channel string
}

func (f *fakeSubscriber) Listen(_ context.Context, channel string) (Subscription, error) {
	f.mu.Lock()
	f.listens++
	f.channel = channel
	f.mu.Unlock()
	select {
	case s := <-f.subs:
		return s, nil
	default:
		return nil, errors.New("no connection")
	}
}

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) Invalidate(_ context.Context, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, keys)
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func newSub() *fakeSub {
	return &fakeSub{events: make(chan event), closed: make(chan struct{})}
}

func TestRunInvalidatesPerNotification(t *testing.T) {
	sub := newSub()
	subscriber := &fakeSubscriber{subs: make(chan *fakeSub, 1)}
	subscriber.subs <- sub
	inv := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(subscriber, inv, "campaign_changes", time.Millisecond, 0).Run(ctx)
		close(done)
	}()

	sub.events <- event{payload: "campaign:3"}
	sub.events <- event{payload: "campaigns"}
	require.Eventually(t, func() bool { return len(inv.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	<-sub.closed
	assert.Equal(t, [][]string{{"campaign:3", "campaigns"}, {"campaigns"}}, inv.snapshot())
	assert.Equal(t, "campaign_changes", subscriber.channel)
}

func TestRunDebouncesBursts(t *testing.T) {
	sub := newSub()
	subscriber := &fakeSubscriber{subs: make(chan *fakeSub, 1)}
	subscriber.subs <- sub
	inv := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(subscriber, inv, "c", time.Millisecond, 50*time.Millisecond).Run(ctx)

	sub.events <- event{payload: "payouts:1"}
	sub.events <- event{payload: "campaign:2"}
	sub.events <- event{payload: "campaigns"}

	require.Eventually(t, func() bool { return len(inv.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"campaign:1", "campaign:2", "campaigns", "payouts:1"}, inv.snapshot()[0])
}

func TestRunReconnectsAndDropsEverything(t *testing.T) {
	first, second := newSub(), newSub()
	subscriber := &fakeSubscriber{subs: make(chan *fakeSub, 2)}
	subscriber.subs <- first
	inv := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(subscriber, inv, "c", time.Millisecond, 0).Run(ctx)

	first.events <- event{err: errors.New("conn reset")}
	<-first.closed

	// The next Listen attempts fail until a connection is available again.
	require.Eventually(t, func() bool {
		subscriber.mu.Lock()
		defer subscriber.mu.Unlock()
		return subscriber.listens >= 2
	}, time.Second, time.Millisecond)
	subscriber.subs <- second

	require.Eventually(t, func() bool { return len(inv.snapshot()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"campaigns", "campaign", "payouts"}, inv.snapshot()[0])

	second.events <- event{payload: "campaigns"}
	require.Eventually(t, func() bool { return len(inv.snapshot()) == 2 }, time.Second, time.Millisecond)
}

// lingeringSub returns from Wait a little after its ctx ends, like a driver
// that still has to unwind the connection read.
type lingeringSub struct {
	waiting     atomic.Bool
	closedEarly atomic.Bool
	closed      chan struct{}
}

func (s *lingeringSub) Wait(ctx context.Context) (string, error) {
	s.waiting.Store(true)
	defer s.waiting.Store(false)
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	return "", ctx.Err()
}

func (s *lingeringSub) Close() {
	if s.waiting.Load() {
		s.closedEarly.Store(true)
	}
	close(s.closed)
}

type lingeringSubscriber struct{ sub *lingeringSub }

func (f *lingeringSubscriber) Listen(context.Context, string) (Subscription, error) {
	return f.sub, nil
}

func TestRunClosesSubscriptionAfterWaitReturns(t *testing.T) {
	sub := &lingeringSub{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(&lingeringSubscriber{sub: sub}, &recorder{}, "c", time.Millisecond, 0).Run(ctx)
		close(done)
	}()

	require.Eventually(t, sub.waiting.Load, time.Second, time.Millisecond)
	cancel()
	<-done
	<-sub.closed
	assert.False(t, sub.closedEarly.Load(), "Close ran while Wait was still using the connection")
}

func TestJitter(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jitter(time.Second)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.Less(t, d, 1500*time.Millisecond)
	}
	assert.Positive(t, jitter(0))
}
