package cache

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
)

// Cache is the query result store shared by reads and mutations. Values are
// encoded query results, so callers never share mutable state with it.
//
// Invalidate(key) drops key and every key nested under it, so invalidating
// KeyCampaigns drops all cached lists and searches.
//
// Stamp returns the current invalidation epoch. A reader takes a stamp before
// fetching and passes it to Set; Set discards the value if key, or any key it
// is nested under, was invalidated after the stamp was taken. The check and
// the write are atomic with respect to Invalidate.
type Cache interface {
	Stamp(ctx context.Context) uint64
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, stamp uint64, value []byte)
	Invalidate(ctx context.Context, key string)
}

const sep = ":"

// Root keys.
const (
	KeyCampaigns = "campaigns"
	KeyCampaign  = "campaign"
	KeyPayouts   = "payouts"
	KeyCountries = "countries"
)

// Join builds a nested key: Join("payouts", "5") == "payouts:5".
func Join(parts ...string) string { return strings.Join(parts, sep) }

// CampaignKey is the single-campaign entry.
func CampaignKey(id int) string { return Join(KeyCampaign, strconv.Itoa(id)) }

// PayoutsKey is the payout list of one campaign.
func PayoutsKey(campaignID int) string { return Join(KeyPayouts, strconv.Itoa(campaignID)) }

// lineage lists key and every key it is nested under, outermost first:
// lineage("a:b:c") == ["a", "a:b", "a:b:c"].
func lineage(key string) []string {
	var out []string
	for i := 0; i < len(key); i++ {
		if strings.HasPrefix(key[i:], sep) {
			out = append(out, key[:i])
		}
	}
	return append(out, key)
}

// covers reports whether invalidating prefix drops key.
func covers(prefix, key string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+sep)
}

// Snapshot is a lock-free, read-optimized container
// holding any immutable structure.
type Snapshot[T any] struct{ v atomic.Value }

type boxed[T any] struct{ v T }

// Load returns the stored value; ok is false until the first Store.
func (s *Snapshot[T]) Load() (v T, ok bool) {
	b, ok := s.v.Load().(boxed[T])
	return b.v, ok
}

// Store atomically swaps in the new value.
func (s *Snapshot[T]) Store(v T) {
	s.v.Store(boxed[T]{v: v})
}
