package engine

import (
	"fmt"
	"strings"
)

// StatusFilter: "all" | "true" | "false"
type StatusFilter string

const (
	StatusAll     StatusFilter = "all"
	StatusRunning StatusFilter = "true"
	StatusStopped StatusFilter = "false"
)

// PayoutBand selects campaigns by their highest payout.
type PayoutBand string

const (
	PayoutAll      PayoutBand = "all"
	Payout0To50    PayoutBand = "0-50"
	Payout51To100  PayoutBand = "51-100"
	Payout101To500 PayoutBand = "101-500"
	Payout501Plus  PayoutBand = "501+"
)

// SortKey orders the filtered list.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortTitleAsc   SortKey = "title-asc"
	SortTitleDesc  SortKey = "title-desc"
	SortPayoutHigh SortKey = "payout-high"
	SortPayoutLow  SortKey = "payout-low"
)

// ListState is the ephemeral filter/sort state of the campaign list view.
type ListState struct {
	Search string
	Status StatusFilter
	Payout PayoutBand
	Sort   SortKey
}

// DefaultListState matches a freshly opened list view.
func DefaultListState() ListState {
	return ListState{Status: StatusAll, Payout: PayoutAll, Sort: SortNewest}
}

// ParseListState converts raw query values into a ListState. Empty values
// fall back to the defaults; unknown values are rejected.
func ParseListState(search, status, payout, sort string) (ListState, error) {
	st := DefaultListState()
	st.Search = search

	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "all":
	case "true", "running":
		st.Status = StatusRunning
	case "false", "stopped":
		st.Status = StatusStopped
	default:
		return st, fmt.Errorf("unknown status filter %q", status)
	}

	switch b := PayoutBand(strings.TrimSpace(payout)); b {
	case "":
	case PayoutAll, Payout0To50, Payout51To100, Payout101To500, Payout501Plus:
		st.Payout = b
	default:
		return st, fmt.Errorf("unknown payout filter %q", payout)
	}

	switch k := SortKey(strings.ToLower(strings.TrimSpace(sort))); k {
	case "":
	case SortNewest, SortOldest, SortTitleAsc, SortTitleDesc, SortPayoutHigh, SortPayoutLow:
		st.Sort = k
	default:
		return st, fmt.Errorf("unknown sort key %q", sort)
	}
	return st, nil
}
