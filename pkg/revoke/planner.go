// Package revoke implements the remove path: splitting an organization's
// inactive seats into individually-assigned and team-assigned candidates
// and executing the removals, protecting team maintainers.
package revoke

import (
	"context"

	"github.com/seatsync/seatsync/pkg/errors"
	"github.com/seatsync/seatsync/pkg/logging"
	"github.com/seatsync/seatsync/pkg/seats"
)

// RoleMaintainer is the team role protected from removal.
const RoleMaintainer = "maintainer"

// TeamRemoval is one team-assigned removal candidate.
type TeamRemoval struct {
	Login string `json:"login"`
	Team  string `json:"team"`
}

// Plan partitions an organization's inactive seats into removal candidates.
type Plan struct {
	Organization string        `json:"organization"`
	Individual   []string      `json:"individual"`
	Team         []TeamRemoval `json:"team"`
}

// Empty reports whether the plan proposes no removals.
func (p Plan) Empty() bool {
	return len(p.Individual) == 0 && len(p.Team) == 0
}

// BuildPlan splits the snapshot's inactive seats by assignment kind:
// seats with no assigning team are individual candidates, the rest are
// team candidates.
func BuildPlan(snap *seats.Snapshot) Plan {
	plan := Plan{Organization: snap.Organization}
	for _, seat := range snap.Inactive {
		if seat.TeamAssigned() {
			plan.Team = append(plan.Team, TeamRemoval{Login: seat.Login, Team: seat.AssigningTeam.Slug})
		} else {
			plan.Individual = append(plan.Individual, seat.Login)
		}
	}
	return plan
}

// RoleChecker looks up a user's role on a team.
type RoleChecker interface {
	TeamRole(ctx context.Context, org, team, login string) (string, error)
}

// SeatRevoker issues removal calls: one batched cancellation for
// individually-assigned seats and one membership removal per team seat.
type SeatRevoker interface {
	RevokeSeats(ctx context.Context, org string, logins []string) (int, error)
	RemoveTeamMember(ctx context.Context, org, team, login string) error
}

// API combines the remote contracts the planner depends on.
type API interface {
	RoleChecker
	SeatRevoker
}

// Planner executes removal plans and accumulates the removed-seat total
// across all organizations processed in the run.
type Planner struct {
	api             API
	removeFromTeams bool
	total           int
}

// NewPlanner creates a Planner. Team-assigned removals are only executed
// when removeFromTeams is set; individual removals always run.
func NewPlanner(api API, removeFromTeams bool) *Planner {
	return &Planner{api: api, removeFromTeams: removeFromTeams}
}

// TotalRemoved returns the running removal total across Execute calls.
func (p *Planner) TotalRemoved() int {
	return p.total
}

// Execute applies a removal plan: one cancellation request for all
// individual candidates (when any exist), then one role check plus
// conditional membership removal per team candidate, sequentially.
// Team maintainers are never removed. Soft remote failures are logged
// and skipped; any other failure aborts the remaining plan.
func (p *Planner) Execute(ctx context.Context, plan Plan) (int, error) {
	logger := logging.FromContext(ctx)
	removed := 0

	if len(plan.Individual) > 0 {
		cancelled, err := p.api.RevokeSeats(ctx, plan.Organization, plan.Individual)
		if err != nil {
			if !errors.IsSoft(err) {
				return removed, err
			}
			logger.Warn().
				Str("organization", plan.Organization).
				AnErr("reason", err).
				Msg("Skipping individual seat removals")
		} else {
			removed += cancelled
			logger.Info().
				Str("organization", plan.Organization).
				Int("seats_cancelled", cancelled).
				Msg("Revoked individually-assigned seats")
		}
	}

	for _, tr := range plan.Team {
		if !p.removeFromTeams {
			logger.Debug().
				Str("organization", plan.Organization).
				Str("login", tr.Login).
				Str("team", tr.Team).
				Msg("Team removal disabled, leaving seat in place")
			continue
		}

		role, err := p.api.TeamRole(ctx, plan.Organization, tr.Team, tr.Login)
		if err != nil {
			if !errors.IsSoft(err) {
				p.total += removed
				return removed, err
			}
			logger.Warn().
				Str("organization", plan.Organization).
				Str("login", tr.Login).
				Str("team", tr.Team).
				AnErr("reason", err).
				Msg("Skipping team removal, role lookup unavailable")
			continue
		}

		if role == RoleMaintainer {
			logger.Info().
				Str("organization", plan.Organization).
				Str("login", tr.Login).
				Str("team", tr.Team).
				Msg("Skipping team maintainer")
			continue
		}

		if err := p.api.RemoveTeamMember(ctx, plan.Organization, tr.Team, tr.Login); err != nil {
			if !errors.IsSoft(err) {
				p.total += removed
				return removed, err
			}
			logger.Warn().
				Str("organization", plan.Organization).
				Str("login", tr.Login).
				Str("team", tr.Team).
				AnErr("reason", err).
				Msg("Skipping team removal")
			continue
		}

		removed++
		logger.Info().
			Str("organization", plan.Organization).
			Str("login", tr.Login).
			Str("team", tr.Team).
			Msg("Removed inactive seat holder from assigning team")
	}

	p.total += removed
	return removed, nil
}
