package engine

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"campaign-console/internal/campaign"
)

// Apply filters the campaigns by st and orders the survivors by st.Sort.
// The input slice is never modified.
func Apply(campaigns []campaign.Campaign, st ListState) []campaign.Campaign {
	return Sort(Filter(campaigns, st), st.Sort)
}

// Filter keeps the campaigns matching every predicate of st, in input order.
func Filter(campaigns []campaign.Campaign, st ListState) []campaign.Campaign {
	q := strings.ToLower(st.Search)
	out := make([]campaign.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if matchesSearch(c, q) && matchesStatus(c, st.Status) && InBand(c, st.Payout) {
			out = append(out, c)
		}
	}
	return out
}

func matchesSearch(c campaign.Campaign, lowered string) bool {
	if lowered == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), lowered) ||
		strings.Contains(strings.ToLower(c.LandingURL), lowered)
}

func matchesStatus(c campaign.Campaign, f StatusFilter) bool {
	switch f {
	case StatusRunning:
		return c.IsRunning
	case StatusStopped:
		return !c.IsRunning
	default:
		return true
	}
}

// InBand reports whether the campaign's highest payout falls in band.
// A campaign without payouts only matches PayoutAll.
func InBand(c campaign.Campaign, band PayoutBand) bool {
	if band == PayoutAll || band == "" {
		return true
	}
	top, ok := c.MaxPayout()
	if !ok {
		return false
	}
	switch band {
	case Payout0To50:
		return top <= 50
	case Payout51To100:
		return top > 50 && top <= 100
	case Payout101To500:
		return top > 100 && top <= 500
	case Payout501Plus:
		return top > 500
	}
	return true
}

// sortPayout is the key used for payout ordering; no payouts sorts as 0.
func sortPayout(c campaign.Campaign) float64 {
	top, _ := c.MaxPayout()
	return top
}

// Sort returns a reordered copy. All orderings are stable; newest is the
// reverse of the fetched order since campaigns carry no timestamp.
func Sort(campaigns []campaign.Campaign, key SortKey) []campaign.Campaign {
	out := slices.Clone(campaigns)
	switch key {
	case SortNewest:
		slices.Reverse(out)
	case SortTitleAsc, SortTitleDesc:
		// Collator keeps internal buffers; one per call.
		col := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b campaign.Campaign) int {
			if key == SortTitleDesc {
				return col.CompareString(b.Title, a.Title)
			}
			return col.CompareString(a.Title, b.Title)
		})
	case SortPayoutHigh:
		slices.SortStableFunc(out, func(a, b campaign.Campaign) int {
			return cmpFloat(sortPayout(b), sortPayout(a))
		})
	case SortPayoutLow:
		slices.SortStableFunc(out, func(a, b campaign.Campaign) int {
			return cmpFloat(sortPayout(a), sortPayout(b))
		})
	}
	return out
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
