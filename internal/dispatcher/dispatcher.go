package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"campaign-console/internal/cache"
	"campaign-console/internal/campaign"
	"campaign-console/internal/observability"
)

// Store is the campaign store API the dispatcher drives.
type Store interface {
	ListCampaigns(ctx context.Context, p campaign.ListParams) ([]campaign.Campaign, error)
	SearchCampaigns(ctx context.Context, query string, skip, limit int) ([]campaign.Campaign, error)
	GetCampaign(ctx context.Context, id int) (campaign.Campaign, error)
	GetCampaignByURL(ctx context.Context, landingURL string) (campaign.Campaign, error)
	CreateCampaign(ctx context.Context, in campaign.NewCampaign) (campaign.Campaign, error)
	UpdateCampaign(ctx context.Context, id int, upd campaign.CampaignUpdate) (campaign.Campaign, error)
	ToggleCampaign(ctx context.Context, id int) (campaign.Campaign, error)
	DeleteCampaign(ctx context.Context, id int) error
	Countries(ctx context.Context) ([]campaign.Country, error)
	ListPayouts(ctx context.Context, campaignID int) ([]campaign.Payout, error)
	CreatePayout(ctx context.Context, campaignID int, in campaign.NewPayout) (campaign.Payout, error)
	UpdatePayout(ctx context.Context, payoutID int, upd campaign.PayoutUpdate) (campaign.Payout, error)
	DeletePayout(ctx context.Context, payoutID int) error
}

// Dispatcher serves reads through the cache and runs mutations against the
// store. A successful mutation invalidates a fixed set of keys; a failed one
// leaves the cache untouched. Nothing is retried and nothing is patched
// locally: the next read re-fetches.
type Dispatcher struct {
	store Store
	cache cache.Cache
	group singleflight.Group

	countries cache.Snapshot[[]campaign.Country]
}

func New(store Store, c cache.Cache) *Dispatcher {
	return &Dispatcher{store: store, cache: c}
}

// read returns the cached value for key or fetches, stores and returns it.
// Concurrent misses on the same key share one fetch. A fetch that overlaps
// an invalidation of key is returned to its callers but never cached, and
// callers arriving after the invalidation start a fresh fetch.
func read[T any](ctx context.Context, d *Dispatcher, key string, fetch func(context.Context) (T, error)) (T, error) {
	var v T
	if b, ok := d.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		log.Warn().Str("key", key).Msg("undecodable cache entry; refetching")
	}

	stamp := d.cache.Stamp(ctx)
	// The shared fetch outlives any single caller's request.
	shared := context.WithoutCancel(ctx)
	ch := d.group.DoChan(key+"#"+strconv.FormatUint(stamp, 10), func() (any, error) {
		fresh, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(fresh)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		d.cache.Set(shared, key, stamp, b)
		return b, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return v, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return v, res.Err
	}
	// every caller decodes its own copy
	if err := json.Unmarshal(res.Val.([]byte), &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func (d *Dispatcher) invalidate(ctx context.Context, keys ...string) {
	for _, k := range keys {
		d.cache.Invalidate(ctx, k)
	}
}

// Invalidate drops keys on behalf of an outside writer, e.g. a change
// notification from the store's database.
func (d *Dispatcher) Invalidate(ctx context.Context, keys ...string) {
	d.invalidate(ctx, keys...)
}

func listKey(p campaign.ListParams) string {
	q := url.Values{}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Title != "" {
		q.Set("title", p.Title)
	}
	if p.LandingURL != "" {
		q.Set("landing_url", p.LandingURL)
	}
	if p.IsRunning != nil {
		q.Set("is_running", strconv.FormatBool(*p.IsRunning))
	}
	return cache.Join(cache.KeyCampaigns, "list", q.Encode())
}

// Campaigns is the campaign list query.
func (d *Dispatcher) Campaigns(ctx context.Context, p campaign.ListParams) ([]campaign.Campaign, error) {
	return read(ctx, d, listKey(p), func(ctx context.Context) ([]campaign.Campaign, error) {
		return d.store.ListCampaigns(ctx, p)
	})
}

// Search runs the store's title/URL search. Results live under the campaign
// list namespace and are dropped with it.
func (d *Dispatcher) Search(ctx context.Context, query string, skip, limit int) ([]campaign.Campaign, error) {
	key := cache.Join(cache.KeyCampaigns, "search", url.QueryEscape(query), strconv.Itoa(skip), strconv.Itoa(limit))
	return read(ctx, d, key, func(ctx context.Context) ([]campaign.Campaign, error) {
		return d.store.SearchCampaigns(ctx, query, skip, limit)
	})
}

// Campaign is the single-campaign query.
func (d *Dispatcher) Campaign(ctx context.Context, id int) (campaign.Campaign, error) {
	return read(ctx, d, cache.CampaignKey(id), func(ctx context.Context) (campaign.Campaign, error) {
		return d.store.GetCampaign(ctx, id)
	})
}

// CampaignByURL looks a campaign up by its landing URL.
func (d *Dispatcher) CampaignByURL(ctx context.Context, landingURL string) (campaign.Campaign, error) {
	key := cache.Join(cache.KeyCampaigns, "url", landingURL)
	return read(ctx, d, key, func(ctx context.Context) (campaign.Campaign, error) {
		return d.store.GetCampaignByURL(ctx, landingURL)
	})
}

// Payouts is the payout list of one campaign.
func (d *Dispatcher) Payouts(ctx context.Context, campaignID int) ([]campaign.Payout, error) {
	return read(ctx, d, cache.PayoutsKey(campaignID), func(ctx context.Context) ([]campaign.Payout, error) {
		return d.store.ListPayouts(ctx, campaignID)
	})
}

// Countries is static reference data: fetched once per process.
func (d *Dispatcher) Countries(ctx context.Context) ([]campaign.Country, error) {
	if cs, ok := d.countries.Load(); ok {
		return cs, nil
	}
	cs, err := read(ctx, d, cache.KeyCountries, d.store.Countries)
	if err != nil {
		return nil, err
	}
	d.countries.Store(cs)
	return cs, nil
}

// commit finishes a mutation: on success the keys are invalidated, on
// failure the cache is left as it was.
func (d *Dispatcher) commit(ctx context.Context, name string, err error, keys ...string) error {
	observability.ObserveMutation(name, err)
	if err != nil {
		log.Error().Err(err).Str("mutation", name).Msg("mutation failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	d.invalidate(ctx, keys...)
	log.Info().Str("mutation", name).Strs("invalidated", keys).Msg("mutation applied")
	return nil
}

func (d *Dispatcher) CreateCampaign(ctx context.Context, in campaign.NewCampaign) (campaign.Campaign, error) {
	c, err := d.store.CreateCampaign(ctx, in)
	return c, d.commit(ctx, "create campaign", err, cache.KeyCampaigns)
}

func (d *Dispatcher) UpdateCampaign(ctx context.Context, id int, upd campaign.CampaignUpdate) (campaign.Campaign, error) {
	c, err := d.store.UpdateCampaign(ctx, id, upd)
	return c, d.commit(ctx, "update campaign", err, cache.KeyCampaigns, cache.CampaignKey(id))
}

func (d *Dispatcher) ToggleCampaign(ctx context.Context, id int) (campaign.Campaign, error) {
	c, err := d.store.ToggleCampaign(ctx, id)
	return c, d.commit(ctx, "toggle campaign", err, cache.KeyCampaigns)
}

func (d *Dispatcher) DeleteCampaign(ctx context.Context, id int) error {
	err := d.store.DeleteCampaign(ctx, id)
	return d.commit(ctx, "delete campaign", err, cache.KeyCampaigns)
}

func (d *Dispatcher) CreatePayout(ctx context.Context, campaignID int, in campaign.NewPayout) (campaign.Payout, error) {
	p, err := d.store.CreatePayout(ctx, campaignID, in)
	return p, d.commit(ctx, "create payout", err, cache.PayoutsKey(campaignID), cache.KeyCampaigns)
}

func (d *Dispatcher) UpdatePayout(ctx context.Context, payoutID int, upd campaign.PayoutUpdate) (campaign.Payout, error) {
	p, err := d.store.UpdatePayout(ctx, payoutID, upd)
	return p, d.commit(ctx, "update payout", err, cache.KeyCampaigns, cache.KeyPayouts)
}

func (d *Dispatcher) DeletePayout(ctx context.Context, payoutID int) error {
	err := d.store.DeletePayout(ctx, payoutID)
	return d.commit(ctx, "delete payout", err, cache.KeyCampaigns, cache.KeyPayouts)
}
