package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis is a Cache shared by every console replica pointing at the same
// Redis database. Redis failures degrade to cache misses.
//
// The invalidation epoch and the per-key invalidation marks live in Redis
// next to the entries, so a fetch on one replica cannot repopulate a key that
// another replica invalidated while the fetch was running.
type Redis struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
}

// NewRedis wraps rdb. Keys are stored as namespace+":"+key; ttl <= 0 keeps
// entries until invalidated.
func NewRedis(rdb *redis.Client, namespace string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (r *Redis) key(k string) string { return r.namespace + sep + k }

// Bookkeeping keys use '#' so nested-key scans over entries never see them.
func (r *Redis) epochKey() string { return r.namespace + "#epoch" }
func (r *Redis) droppedKey(k string) string { return r.namespace + "#dropped" + sep + k }

// setUnlessDropped writes KEYS[1] unless one of KEYS[2..] holds an epoch
// newer than the stamp in ARGV[1].
var setUnlessDropped = redis.NewScript(`
local stamp = tonumber(ARGV[1])
for i = 2, #KEYS do
  local dropped = redis.call('GET', KEYS[i])
  if dropped and tonumber(dropped) > stamp then
    return 0
  end
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

func (r *Redis) Stamp(ctx context.Context) uint64 {
	n, err := r.rdb.Get(ctx, r.epochKey()).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Msg("redis cache stamp")
	}
	return n
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("redis cache get")
		}
		recordLookup(false)
		return nil, false
	}
	recordLookup(true)
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, stamp uint64, value []byte) {
	keys := []string{r.key(key)}
	for _, k := range lineage(key) {
		keys = append(keys, r.droppedKey(k))
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	written, err := setUnlessDropped.Run(ctx, r.rdb, keys, stamp, value, ttl.Milliseconds()).Int()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache set")
		return
	}
	if written == 0 {
		recordStaleWrite()
	}
}

func (r *Redis) Invalidate(ctx context.Context, key string) {
	recordInvalidation(key)
	// Mark first, then delete: a concurrent Set either lands before the
	// delete or is refused by the mark.
	epoch, err := r.rdb.Incr(ctx, r.epochKey()).Result()
	if err == nil {
		err = r.rdb.Set(ctx, r.droppedKey(key), epoch, 0).Err()
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache mark invalidated")
	}

	full := r.key(key)
	if err := r.rdb.Del(ctx, full).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache invalidate")
	}

	iter := r.rdb.Scan(ctx, 0, escapeGlob(full+sep)+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			r.del(ctx, key, batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("redis cache scan")
	}
	if len(batch) > 0 {
		r.del(ctx, key, batch)
	}
}

func (r *Redis) del(ctx context.Context, key string, keys []string) {
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Int("n", len(keys)).Msg("redis cache invalidate nested")
	}
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
