// SPDX-License-Identifier: MIT
package sortutil

import (
	"sort"

	"github.com/skaphos/benchkeeper/internal/model"
	"github.com/skaphos/benchkeeper/internal/regression"
)

// LessDateCommit provides deterministic ordering by date first, then by
// commit id for entries recorded in the same millisecond.
func LessDateCommit(dateI int64, commitI string, dateJ int64, commitJ string) bool {
	if dateI == dateJ {
		return commitI < commitJ
	}
	return dateI < dateJ
}

// SortEntriesByDate orders history entries oldest first.
func SortEntriesByDate(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return LessDateCommit(entries[i].Date, entries[i].Commit.ID, entries[j].Date, entries[j].Commit.ID)
	})
}

// SortAlertsByRatio orders alerts worst first, then by benchmark name.
// NaN ratios sort last.
func SortAlertsByRatio(alerts []regression.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Ratio, alerts[j].Ratio
		switch {
		case ri != ri:
			return false
		case rj != rj:
			return true
		case ri == rj:
			return alerts[i].Current.Name < alerts[j].Current.Name
		default:
			return ri > rj
		}
	})
}
