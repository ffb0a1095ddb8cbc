// Package seats defines the Copilot seat domain model: the seat entitlement
// type, the activity classifier, and the per-run organization snapshot store.
package seats

import (
	"strings"

	"github.com/agentstation/utc"
)

// Team is a reference to the team through which a seat was assigned.
type Team struct {
	Slug string `json:"slug"`
	Name string `json:"name,omitempty"`
}

// Seat is one assigned Copilot license for one user in one organization.
// Organization is annotated by the store when the seat is fetched so
// downstream consumers never need to carry the org separately.
type Seat struct {
	Organization            string    `json:"organization"`
	Login                   string    `json:"login"`
	CreatedAt               utc.Time  `json:"created_at"`
	LastActivityAt          *utc.Time `json:"last_activity_at,omitempty"`
	LastActivityEditor      string    `json:"last_activity_editor,omitempty"`
	PendingCancellationDate *utc.Time `json:"pending_cancellation_date,omitempty"`
	AssigningTeam           *Team     `json:"assigning_team,omitempty"`
}

// PendingCancellation reports whether the seat is already scheduled for
// cancellation.
func (s Seat) PendingCancellation() bool {
	return s.PendingCancellationDate != nil
}

// TeamAssigned reports whether the seat was assigned through a team
// rather than individually.
func (s Seat) TeamAssigned() bool {
	return s.AssigningTeam != nil && s.AssigningTeam.Slug != ""
}

// Snapshot is the cached per-organization aggregate for one run: the full
// seat list, the classified inactive subset, and the membership roster.
// It is created lazily on first access and mutated additively as
// sub-fetches complete; it is never persisted beyond the run.
type Snapshot struct {
	Organization string   `json:"organization"`
	Total        int      `json:"total_seats"`
	Seats        []Seat   `json:"seats"`
	Inactive     []Seat   `json:"inactive_seats"`
	Members      []string `json:"members"`

	memberSet map[string]struct{}

	seatsFetched   bool
	membersFetched bool
}

// SetMembers replaces the membership roster. Logins are matched
// case-insensitively, following the platform's login semantics.
func (s *Snapshot) SetMembers(members []string) {
	s.Members = members
	s.memberSet = make(map[string]struct{}, len(members))
	for _, m := range members {
		s.memberSet[strings.ToLower(m)] = struct{}{}
	}
	s.membersFetched = true
}

// IsMember reports whether login is on the organization's membership roster.
func (s *Snapshot) IsMember(login string) bool {
	_, ok := s.memberSet[strings.ToLower(login)]
	return ok
}

// Seat returns the entitlement held by login, if any. There is exactly
// one seat per (organization, login) pair within a run.
func (s *Snapshot) Seat(login string) (Seat, bool) {
	for _, seat := range s.Seats {
		if strings.EqualFold(seat.Login, login) {
			return seat, true
		}
	}
	return Seat{}, false
}

// HasActiveSeat reports whether login already holds an entitlement with
// no pending cancellation.
func (s *Snapshot) HasActiveSeat(login string) bool {
	seat, ok := s.Seat(login)
	return ok && !seat.PendingCancellation()
}

// HasInactiveSeat reports whether login appears in the classified
// inactive subset.
func (s *Snapshot) HasInactiveSeat(login string) bool {
	for _, seat := range s.Inactive {
		if strings.EqualFold(seat.Login, login) {
			return true
		}
	}
	return false
}
