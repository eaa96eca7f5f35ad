package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"campaign-console/internal/campaign"
	"campaign-console/internal/validate"
)

// ErrBatchFailed is returned when a payout batch save stopped part way. The
// steps before the failure are not rolled back.
var ErrBatchFailed = errors.New("payout batch save failed")

// BatchResult counts what a payout batch save did before it finished or failed.
type BatchResult struct {
	Deleted int `json:"deleted"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// SubmitCreate validates the create form and, only if it passes, creates the campaign.
func (d *Dispatcher) SubmitCreate(ctx context.Context, f validate.CreateForm) (campaign.Campaign, error) {
	in, err := validate.CreateCampaign(f)
	if err != nil {
		return campaign.Campaign{}, err
	}
	return d.CreateCampaign(ctx, in)
}

// SubmitEdit validates the edit-details form and updates title and URL,
// preserving the campaign's running state.
func (d *Dispatcher) SubmitEdit(ctx context.Context, id int, f validate.EditForm) (campaign.Campaign, error) {
	if _, _, err := validate.EditDetails(f); err != nil {
		return campaign.Campaign{}, err
	}
	current, err := d.Campaign(ctx, id)
	if err != nil {
		return campaign.Campaign{}, fmt.Errorf("load campaign %d: %w", id, err)
	}
	upd, err := validate.EditCampaign(f, current)
	if err != nil {
		return campaign.Campaign{}, err
	}
	return d.UpdateCampaign(ctx, id, upd)
}

// SubmitPayout validates and creates a single payout.
func (d *Dispatcher) SubmitPayout(ctx context.Context, campaignID int, in campaign.NewPayout) (campaign.Payout, error) {
	if err := validate.Payout(in); err != nil {
		return campaign.Payout{}, err
	}
	return d.CreatePayout(ctx, campaignID, in)
}

// SavePayouts reconciles a campaign's persisted payouts with the edited rows:
// persisted payouts missing from rows are deleted first, rows without an id
// are then created, and persisted rows whose country or amount changed are
// updated last. Each step is its own mutation with its own invalidation.
func (d *Dispatcher) SavePayouts(ctx context.Context, campaignID int, rows []validate.PayoutRow) (BatchResult, error) {
	var res BatchResult
	if err := validate.PayoutRows(rows); err != nil {
		return res, err
	}

	existing, err := d.Payouts(ctx, campaignID)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}

	kept := make(map[int]validate.PayoutRow, len(rows))
	for _, r := range rows {
		if r.ID != 0 {
			kept[r.ID] = r
		}
	}
	persisted := make(map[int]campaign.Payout, len(existing))
	for _, p := range existing {
		persisted[p.ID] = p
	}

	fail := func(err error) (BatchResult, error) {
		log.Error().Err(err).Int("campaign_id", campaignID).
			Int("deleted", res.Deleted).Int("created", res.Created).Int("updated", res.Updated).
			Msg("payout batch save stopped")
		return res, fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}

	for _, p := range existing {
		if _, ok := kept[p.ID]; ok {
			continue
		}
		if err := d.DeletePayout(ctx, p.ID); err != nil {
			return fail(err)
		}
		res.Deleted++
	}

	for _, r := range rows {
		if r.ID != 0 {
			continue
		}
		if _, err := d.CreatePayout(ctx, campaignID, campaign.NewPayout{Country: r.Country, Amount: r.Amount}); err != nil {
			return fail(err)
		}
		res.Created++
	}

	for _, r := range rows {
		if r.ID == 0 {
			continue
		}
		p, ok := persisted[r.ID]
		if !ok {
			log.Warn().Int("payout_id", r.ID).Int("campaign_id", campaignID).Msg("edited payout no longer exists; skipping")
			continue
		}
		if p.Country == r.Country && p.Amount == r.Amount {
			continue
		}
		country, amount := r.Country, r.Amount
		if _, err := d.UpdatePayout(ctx, r.ID, campaign.PayoutUpdate{Country: &country, Amount: &amount}); err != nil {
			return fail(err)
		}
		res.Updated++
	}
	return res, nil
}
