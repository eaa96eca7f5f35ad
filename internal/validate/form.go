package validate

import (
	"fmt"
	"strings"

	"campaign-console/internal/campaign"
)

// PayoutRow is one row of a payout editor. ID is set for rows loaded from the store.
type PayoutRow struct {
	ID      int     `json:"id,omitempty"`
	Country string  `json:"country"`
	Amount  float64 `json:"amount"`
}

// CreateForm is the raw input of the create-campaign dialog.
type CreateForm struct {
	Title   string      `json:"title"`
	URL     string      `json:"landing_url"`
	Payouts []PayoutRow `json:"payouts"`
}

// EditForm is the raw input of the edit-details dialog.
type EditForm struct {
	Title string `json:"title"`
	URL   string `json:"landing_url"`
}

// CreateCampaign validates the form and returns the create payload. New
// campaigns always start stopped.
func CreateCampaign(f CreateForm) (campaign.NewCampaign, error) {
	if err := requireTitleAndURL(f.Title, f.URL); err != nil {
		return campaign.NewCampaign{}, err
	}
	if err := checkRows(f.Payouts); err != nil {
		return campaign.NewCampaign{}, err
	}
	u, err := NormalizeURL(f.URL)
	if err != nil {
		return campaign.NewCampaign{}, err
	}

	out := campaign.NewCampaign{
		Title:      f.Title,
		LandingURL: u,
		IsRunning:  false,
		Payouts:    make([]campaign.NewPayout, 0, len(f.Payouts)),
	}
	for _, p := range f.Payouts {
		out.Payouts = append(out.Payouts, campaign.NewPayout{Country: p.Country, Amount: p.Amount})
	}
	return out, nil
}

// EditDetails validates the edit-details form and returns the title and the
// normalized landing URL.
func EditDetails(f EditForm) (title, landingURL string, err error) {
	if err := requireTitleAndURL(f.Title, f.URL); err != nil {
		return "", "", err
	}
	u, err := NormalizeURL(f.URL)
	if err != nil {
		return "", "", err
	}
	return f.Title, u, nil
}

// EditCampaign builds the update for the edit-details form. The current
// running state is sent back unchanged so the update never flips it.
func EditCampaign(f EditForm, current campaign.Campaign) (campaign.CampaignUpdate, error) {
	title, u, err := EditDetails(f)
	if err != nil {
		return campaign.CampaignUpdate{}, err
	}
	running := current.IsRunning
	return campaign.CampaignUpdate{Title: &title, LandingURL: &u, IsRunning: &running}, nil
}

// PayoutRows validates a payout editor's rows.
func PayoutRows(rows []PayoutRow) error { return checkRows(rows) }

// Payout validates a single payout create.
func Payout(p campaign.NewPayout) error {
	return checkRows([]PayoutRow{{Country: p.Country, Amount: p.Amount}})
}

func requireTitleAndURL(title, rawURL string) error {
	if strings.TrimSpace(title) == "" {
		return required("title")
	}
	if strings.TrimSpace(rawURL) == "" {
		return required("landing_url")
	}
	return nil
}

func checkRows(rows []PayoutRow) error {
	for i, r := range rows {
		if strings.TrimSpace(r.Country) == "" {
			return required(fmt.Sprintf("payouts[%d].country", i))
		}
		if r.Amount <= 0 {
			return required(fmt.Sprintf("payouts[%d].amount", i))
		}
	}
	return nil
}

// PayoutUpdate validates a partial payout update: fields that are present
// must be filled in.
func PayoutUpdate(u campaign.PayoutUpdate) error {
	if u.Country != nil && strings.TrimSpace(*u.Country) == "" {
		return required("country")
	}
	if u.Amount != nil && *u.Amount <= 0 {
		return required("amount")
	}
	return nil
}
