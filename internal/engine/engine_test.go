package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-console/internal/campaign"
)

func payouts(amounts ...float64) []campaign.Payout {
	out := make([]campaign.Payout, len(amounts))
	for i, a := range amounts {
		out[i] = campaign.Payout{ID: i + 1, Country: "US", Amount: a}
	}
	return out
}

func titles(cs []campaign.Campaign) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Title
	}
	return out
}

func fixture() []campaign.Campaign {
	return []campaign.Campaign{
		{ID: 1, Title: "Alpha", LandingURL: "https://www.alpha.com", IsRunning: true, Payouts: payouts(30)},
		{ID: 2, Title: "Beta", LandingURL: "https://www.beta.org", IsRunning: false, Payouts: payouts(600)},
		{ID: 3, Title: "charlie", LandingURL: "https://shop.example.com", IsRunning: true, Payouts: payouts(75, 120)},
		{ID: 4, Title: "Delta", LandingURL: "https://www.delta.net", IsRunning: false, Payouts: nil},
		{ID: 5, Title: "Echo", LandingURL: "https://echo.example.com", IsRunning: true, Payouts: payouts(99.5)},
	}
}

func TestApply_SpecExample(t *testing.T) {
	cs := fixture()[:2]

	st := DefaultListState()
	st.Status = StatusRunning
	assert.Equal(t, []string{"Alpha"}, titles(Apply(cs, st)))

	st = DefaultListState()
	st.Sort = SortPayoutHigh
	assert.Equal(t, []string{"Beta", "Alpha"}, titles(Apply(cs, st)))
}

func TestFilter_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		st   ListState
		want []string
	}{
		{"no filters", ListState{Status: StatusAll, Payout: PayoutAll}, []string{"Alpha", "Beta", "charlie", "Delta", "Echo"}},
		{"search title case-insensitive", ListState{Search: "ALP"}, []string{"Alpha"}},
		{"search url", ListState{Search: "example.com"}, []string{"charlie", "Echo"}},
		{"search miss", ListState{Search: "zulu"}, []string{}},
		{"running", ListState{Status: StatusRunning}, []string{"Alpha", "charlie", "Echo"}},
		{"stopped", ListState{Status: StatusStopped}, []string{"Beta", "Delta"}},
		{"band 0-50", ListState{Payout: Payout0To50}, []string{"Alpha"}},
		{"band 51-100", ListState{Payout: Payout51To100}, []string{"Echo"}},
		{"band 101-500 uses max payout", ListState{Payout: Payout101To500}, []string{"charlie"}},
		{"band 501+", ListState{Payout: Payout501Plus}, []string{"Beta"}},
		{"combined", ListState{Search: "example", Status: StatusRunning, Payout: Payout51To100}, []string{"Echo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(fixture(), tt.st)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestInBand_NoPayouts(t *testing.T) {
	c := campaign.Campaign{Title: "empty"}
	assert.True(t, InBand(c, PayoutAll))
	for _, b := range []PayoutBand{Payout0To50, Payout51To100, Payout101To500, Payout501Plus} {
		assert.False(t, InBand(c, b), "band %s", b)
	}
}

func TestInBand_Boundaries(t *testing.T) {
	tests := []struct {
		amount float64
		band   PayoutBand
	}{
		{0, Payout0To50},
		{50, Payout0To50},
		{50.01, Payout51To100},
		{100, Payout51To100},
		{100.5, Payout101To500},
		{500, Payout101To500},
		{500.01, Payout501Plus},
	}
	for _, tt := range tests {
		c := campaign.Campaign{Payouts: payouts(tt.amount)}
		assert.True(t, InBand(c, tt.band), "amount %v band %s", tt.amount, tt.band)
	}
}

func TestSort_Keys(t *testing.T) {
	tests := []struct {
		key  SortKey
		want []string
	}{
		{SortNewest, []string{"Echo", "Delta", "charlie", "Beta", "Alpha"}},
		{SortOldest, []string{"Alpha", "Beta", "charlie", "Delta", "Echo"}},
		{SortTitleAsc, []string{"Alpha", "Beta", "charlie", "Delta", "Echo"}},
		{SortTitleDesc, []string{"Echo", "Delta", "charlie", "Beta", "Alpha"}},
		{SortPayoutHigh, []string{"Beta", "charlie", "Echo", "Alpha", "Delta"}},
		{SortPayoutLow, []string{"Delta", "Alpha", "Echo", "charlie", "Beta"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			assert.Equal(t, tt.want, titles(Sort(fixture(), tt.key)))
		})
	}
}

func TestSort_StableOnTies(t *testing.T) {
	cs := []campaign.Campaign{
		{ID: 1, Title: "first", Payouts: payouts(10)},
		{ID: 2, Title: "second", Payouts: payouts(10)},
		{ID: 3, Title: "third", Payouts: payouts(10)},
	}
	assert.Equal(t, []string{"first", "second", "third"}, titles(Sort(cs, SortPayoutHigh)))
	assert.Equal(t, []string{"first", "second", "third"}, titles(Sort(cs, SortPayoutLow)))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	cs := fixture()
	_ = Sort(cs, SortTitleDesc)
	assert.Equal(t, []string{"Alpha", "Beta", "charlie", "Delta", "Echo"}, titles(cs))
}

func TestApply_Properties(t *testing.T) {
	cs := fixture()
	states := []ListState{
		DefaultListState(),
		{Search: "a", Status: StatusRunning, Payout: PayoutAll, Sort: SortTitleAsc},
		{Status: StatusStopped, Payout: Payout501Plus, Sort: SortPayoutLow},
		{Search: "example", Status: StatusAll, Payout: Payout51To100, Sort: SortOldest},
	}

	for _, st := range states {
		once := Apply(cs, st)
		// idempotent
		assert.Equal(t, once, Apply(cs, st))
		// every kept item comes from the input
		for _, c := range once {
			assert.Contains(t, cs, c)
		}
		assert.LessOrEqual(t, len(once), len(cs))
	}

	// "all" band is the same as no band
	withAll := Filter(cs, ListState{Payout: PayoutAll})
	without := Filter(cs, ListState{})
	assert.Equal(t, without, withAll)

	// title-asc reversed equals title-desc for unique titles
	asc := titles(Sort(cs, SortTitleAsc))
	desc := titles(Sort(cs, SortTitleDesc))
	for i, j := 0, len(asc)-1; i < j; i, j = i+1, j-1 {
		asc[i], asc[j] = asc[j], asc[i]
	}
	assert.Equal(t, desc, asc)
}

func TestParseListState(t *testing.T) {
	st, err := ParseListState("", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultListState(), st)

	st, err = ParseListState("shoes", "running", "101-500", "title-desc")
	require.NoError(t, err)
	assert.Equal(t, ListState{Search: "shoes", Status: StatusRunning, Payout: Payout101To500, Sort: SortTitleDesc}, st)

	st, err = ParseListState("", "false", "all", "oldest")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, st.Status)

	_, err = ParseListState("", "paused", "", "")
	assert.Error(t, err)
	_, err = ParseListState("", "", "1000+", "")
	assert.Error(t, err)
	_, err = ParseListState("", "", "", "random")
	assert.Error(t, err)
}

func BenchmarkApply(b *testing.B) {
	cs := make([]campaign.Campaign, 0, 1000)
	for i := 0; i < 1000; i++ {
		cs = append(cs, campaign.Campaign{
			ID:        i,
			Title:     "campaign " + string(rune('a'+i%26)),
			IsRunning: i%2 == 0,
			Payouts:   payouts(float64(i % 700)),
		})
	}
	st := ListState{Search: "campaign", Status: StatusRunning, Payout: Payout101To500, Sort: SortTitleAsc}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Apply(cs, st)
	}
}
