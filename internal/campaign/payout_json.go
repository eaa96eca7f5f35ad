package campaign

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// UnmarshalJSON accepts amounts both as numbers and as decimal strings
// ("12.50"), which is how the store serializes its Decimal column.
func (p *Payout) UnmarshalJSON(b []byte) error {
	type plain Payout
	var aux struct {
		plain
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = Payout(aux.plain)
	p.Amount = aux.Amount.InexactFloat64()
	return nil
}
