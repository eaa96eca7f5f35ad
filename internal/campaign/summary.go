package campaign

import "github.com/shopspring/decimal"

// PayoutSummary aggregates a campaign's payouts for the details view.
type PayoutSummary struct {
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
	Max     decimal.Decimal `json:"max"`
}

// Summarize totals the payouts in decimal so that repeated float additions do
// not drift. Average is rounded to cents and is zero when there are no payouts.
func Summarize(payouts []Payout) PayoutSummary {
	s := PayoutSummary{Count: len(payouts)}
	for i, p := range payouts {
		amt := decimal.NewFromFloat(p.Amount)
		s.Total = s.Total.Add(amt)
		if i == 0 || amt.GreaterThan(s.Max) {
			s.Max = amt
		}
	}
	if s.Count > 0 {
		s.Average = s.Total.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
	}
	return s
}

// MaxPayout returns the largest payout amount. ok is false for a campaign
// without payouts.
func (c Campaign) MaxPayout() (top float64, ok bool) {
	for i, p := range c.Payouts {
		if i == 0 || p.Amount > top {
			top = p.Amount
		}
	}
	return top, len(c.Payouts) > 0
}
