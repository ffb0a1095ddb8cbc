// Package report folds per-organization and per-group reconciliation
// results into deterministic summary structures for rendering.
package report

import (
	"sort"
	"strings"

	"github.com/seatsync/seatsync/pkg/enrollment"
	"github.com/seatsync/seatsync/pkg/seats"
)

// GroupTally holds per-deployment-group counts accumulated across the
// full enrollment record set after reconciliation completes.
type GroupTally struct {
	Group    string `json:"deployment_group"`
	Total    int    `json:"total"`
	Deployed int    `json:"deployed"`
	Inactive int    `json:"inactive"`
}

// Tally aggregates group counts from the original record set, the list
// of records deployed this run, and the per-organization snapshots.
// The result is sorted ascending by deployment group and immutable once
// computed.
//
// A record increments its group's deployed count once if its login
// already held a non-pending seat before this run, and again if it also
// appears in the newly-deployed list. A login satisfying both checks
// contributes 2; downstream report consumers depend on this historical
// double-count, so it is preserved deliberately.
func Tally(records []enrollment.Record, deployed []enrollment.Record, snapshots map[string]*seats.Snapshot) []GroupTally {
	deployedSet := make(map[string]struct{}, len(deployed))
	for _, rec := range deployed {
		deployedSet[recordKey(rec.Organization, rec.Login)] = struct{}{}
	}

	byGroup := make(map[string]*GroupTally)
	for _, rec := range records {
		tally, ok := byGroup[rec.Group]
		if !ok {
			tally = &GroupTally{Group: rec.Group}
			byGroup[rec.Group] = tally
		}

		tally.Total++

		snap := snapshots[rec.Organization]
		if snap != nil && snap.HasActiveSeat(rec.Login) {
			tally.Deployed++
		}
		if _, ok := deployedSet[recordKey(rec.Organization, rec.Login)]; ok {
			tally.Deployed++
		}
		if snap != nil && snap.HasInactiveSeat(rec.Login) {
			tally.Inactive++
		}
	}

	out := make([]GroupTally, 0, len(byGroup))
	for _, tally := range byGroup {
		out = append(out, *tally)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// recordKey identifies a record by (organization, login), matching the
// case-insensitive login semantics used elsewhere.
func recordKey(org, login string) string {
	return org + "/" + strings.ToLower(login)
}
