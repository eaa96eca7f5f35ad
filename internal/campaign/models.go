package campaign

// Campaign as returned by the campaign store.
type Campaign struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	LandingURL string   `json:"landing_url"`
	IsRunning  bool     `json:"is_running"`
	Payouts    []Payout `json:"payouts"`
}

// Payout is a per-country amount. ID is zero until the store persists it.
type Payout struct {
	ID         int     `json:"id,omitempty"`
	Country    string  `json:"country"`
	Amount     float64 `json:"amount"`
	CampaignID int     `json:"campaign_id,omitempty"`
}

// Persisted reports whether the store has assigned the payout an identity.
func (p Payout) Persisted() bool { return p.ID != 0 }

// Country is read-only reference data served by the store.
type Country struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	CurrencyCode string `json:"currency_code"`
	CurrencyName string `json:"currency_name"`
	EnumValue    string `json:"enum_value"`
	DisplayName  string `json:"display_name"`
}

// NewPayout is the body of a payout create, standalone or nested in a create-campaign call.
type NewPayout struct {
	Country string  `json:"country"`
	Amount  float64 `json:"amount"`
}

// NewCampaign is the create-campaign payload.
type NewCampaign struct {
	Title      string      `json:"title"`
	LandingURL string      `json:"landing_url"`
	IsRunning  bool        `json:"is_running"`
	Payouts    []NewPayout `json:"payouts"`
}

// CampaignUpdate is a partial update; nil fields are left untouched by the store.
type CampaignUpdate struct {
	Title      *string `json:"title,omitempty"`
	LandingURL *string `json:"landing_url,omitempty"`
	IsRunning  *bool   `json:"is_running,omitempty"`
}

// PayoutUpdate is a partial payout update.
type PayoutUpdate struct {
	Country *string  `json:"country,omitempty"`
	Amount  *float64 `json:"amount,omitempty"`
}

// ListParams are the server-side list filters of GET /api/campaigns/.
type ListParams struct {
	Skip       int
	Limit      int
	Title      string
	LandingURL string
	IsRunning  *bool
}
