package campaign

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayout_UnmarshalAmountForms(t *testing.T) {
	var got []Payout
	err := json.Unmarshal([]byte(`[
		{"id": 1, "country": "US", "amount": 12.5, "campaign_id": 9},
		{"id": 2, "country": "DE", "amount": "7.25", "campaign_id": 9}
	]`), &got)
	require.NoError(t, err)
	assert.Equal(t, []Payout{
		{ID: 1, Country: "US", Amount: 12.5, CampaignID: 9},
		{ID: 2, Country: "DE", Amount: 7.25, CampaignID: 9},
	}, got)
}

func TestMaxPayout(t *testing.T) {
	_, ok := Campaign{}.MaxPayout()
	assert.False(t, ok)

	top, ok := Campaign{Payouts: []Payout{{Amount: 3}, {Amount: 40}, {Amount: 12}}}.MaxPayout()
	assert.True(t, ok)
	assert.Equal(t, 40.0, top)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Payout{{Amount: 0.1}, {Amount: 0.2}, {Amount: 10}})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "10.3", s.Total.String())
	assert.Equal(t, "3.43", s.Average.String())
	assert.Equal(t, "10", s.Max.String())

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.Average.IsZero())
	assert.True(t, empty.Total.IsZero())
}
