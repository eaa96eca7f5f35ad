// Package listener turns change notifications from the campaign store's
// database into cache invalidations, so that writes made outside this console
// are seen on the next read.
package listener

import (
	"context"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"campaign-console/internal/cache"
)

// Subscription yields notification payloads until closed.
type Subscription interface {
	Wait(ctx context.Context) (string, error)
	Close()
}

// Subscriber opens a subscription to a notification channel.
type Subscriber interface {
	Listen(ctx context.Context, channel string) (Subscription, error)
}

// Invalidator drops cached keys.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

type Listener struct {
	sub      Subscriber
	inv      Invalidator
	channel  string
	backoff  time.Duration
	debounce time.Duration
}

// New returns a listener on channel. Notifications arriving within debounce
// of each other are invalidated together; backoff is the base reconnect delay.
func New(sub Subscriber, inv Invalidator, channel string, backoff, debounce time.Duration) *Listener {
	return &Listener{sub: sub, inv: inv, channel: channel, backoff: backoff, debounce: debounce}
}

// Keys maps a notification payload to the cache keys it makes stale:
//
//	"campaigns"     every list and search
//	"campaign:<id>" that campaign, plus lists
//	"payouts:<id>"  that campaign's payouts and the campaign, plus lists
//
// An empty or unrecognised payload drops everything.
func Keys(payload string) []string {
	everything := []string{cache.KeyCampaigns, cache.KeyCampaign, cache.KeyPayouts}

	root, rest, nested := strings.Cut(strings.TrimSpace(payload), ":")
	switch {
	case root == cache.KeyCampaigns && !nested:
		return []string{cache.KeyCampaigns}
	case root == cache.KeyCampaign && nested:
		id, err := strconv.Atoi(rest)
		if err != nil || id <= 0 {
			return everything
		}
		return []string{cache.CampaignKey(id), cache.KeyCampaigns}
	case root == cache.KeyPayouts && nested:
		id, err := strconv.Atoi(rest)
		if err != nil || id <= 0 {
			return everything
		}
		return []string{cache.PayoutsKey(id), cache.CampaignKey(id), cache.KeyCampaigns}
	default:
		return everything
	}
}

type event struct {
	payload string
	err     error
}

// Run listens until ctx is done, reconnecting with jittered backoff whenever
// the subscription fails. Each reconnect drops everything, since notifications
// sent while disconnected are lost.
func (l *Listener) Run(ctx context.Context) {
	connected := false
	for ctx.Err() == nil {
		sub, err := l.sub.Listen(ctx, l.channel)
		if err != nil {
			backoff := jitter(l.backoff)
			log.Error().Err(err).Str("channel", l.channel).Dur("retry_in", backoff).Msg("listen")
			if !sleep(ctx, backoff) {
				break
			}
			continue
		}
		if connected {
			l.inv.Invalidate(ctx, Keys("")...)
		}
		connected = true
		log.Info().Str("channel", l.channel).Msg("listening for store changes")

		err = l.consume(ctx, sub)
		sub.Close()
		if ctx.Err() != nil {
			break
		}
		backoff := jitter(l.backoff)
		log.Error().Err(err).Dur("retry_in", backoff).Msg("notify wait error")
		if !sleep(ctx, backoff) {
			break
		}
	}
	log.Info().Msg("listener stopped")
}

// consume applies notifications until the subscription fails or ctx is done.
func (l *Listener) consume(ctx context.Context, sub Subscription) error {
	ctx, cancel := context.WithCancel(ctx)
	readerDone := make(chan struct{})
	// The caller closes sub once we return; Wait must have finished by then.
	defer func() {
		cancel()
		<-readerDone
	}()

	events := make(chan event)
	go func() {
		defer close(readerDone)
		for {
			p, err := sub.Wait(ctx)
			select {
			case events <- event{payload: p, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var (
		pending []string
		timer   *time.Timer
		fire    <-chan time.Time
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		slices.Sort(pending)
		pending = slices.Compact(pending)
		log.Debug().Strs("keys", pending).Msg("store change; invalidating")
		l.inv.Invalidate(context.WithoutCancel(ctx), pending...)
		pending = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()
		case ev := <-events:
			if ev.err != nil {
				flush()
				return ev.err
			}
			pending = append(pending, Keys(ev.payload)...)
			if l.debounce <= 0 {
				flush()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(l.debounce)
				fire = timer.C
			}
		case <-fire:
			timer, fire = nil, nil
			flush()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
