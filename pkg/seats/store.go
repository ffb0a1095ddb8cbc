package seats

import (
	"context"
	"sort"
	"time"

	"github.com/seatsync/seatsync/pkg/errors"
	"github.com/seatsync/seatsync/pkg/logging"
)

const (
	// PerPage is the page size convention for seat and member listings.
	PerPage = 100

	// maxPages bounds pagination loops against a server-reported total
	// that can never be reached (stale count after concurrent mutation).
	maxPages = 1000
)

// SeatLister retrieves one page of seat entitlements for an organization
// along with the server-reported total.
type SeatLister interface {
	ListSeats(ctx context.Context, org string, page int) ([]Seat, int, error)
}

// MemberLister retrieves one page of an organization's membership roster.
// An empty page signals the end of the roster.
type MemberLister interface {
	ListMembers(ctx context.Context, org string, page int) ([]string, error)
}

// Source combines the fetch contracts the store depends on.
type Source interface {
	SeatLister
	MemberLister
}

// Store is the per-run snapshot cache keyed by organization name. It is
// the single owning store for all organization-scoped data during a run;
// consumers read and extend snapshots by reference, never copy them.
// Execution is sequential, so the store performs no locking.
type Store struct {
	source        Source
	thresholdDays int
	now           func() time.Time
	snapshots     map[string]*Snapshot
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the store's time source. Used in tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a per-run snapshot store backed by the given source.
func NewStore(source Source, thresholdDays int, opts ...StoreOption) *Store {
	s := &Store{
		source:        source,
		thresholdDays: thresholdDays,
		now:           time.Now,
		snapshots:     make(map[string]*Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the cached snapshot for org, fetching seats and the
// membership roster on first access. Calls after the first are served
// from the cache without any remote call.
//
// Soft remote failures (Copilot not enabled, organization not found) are
// logged and yield empty result sets; any other failure propagates and
// leaves the partially-fetched snapshot cached so a retry can complete it.
func (s *Store) Snapshot(ctx context.Context, org string) (*Snapshot, error) {
	snap := s.get(org)

	if !snap.seatsFetched {
		if err := s.fetchSeats(ctx, snap); err != nil {
			return nil, err
		}
	}
	if !snap.membersFetched {
		if err := s.fetchMembers(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Cached returns the snapshot for org if one exists, without fetching.
func (s *Store) Cached(org string) (*Snapshot, bool) {
	snap, ok := s.snapshots[org]
	return snap, ok
}

// Seed records an externally-fetched seat set for org (enterprise-mode
// listings arrive grouped by organization). The inactive subset is
// classified immediately; the membership roster is still fetched lazily.
func (s *Store) Seed(org string, seatList []Seat, total int) {
	snap := s.get(org)
	snap.Seats = append(snap.Seats, seatList...)
	snap.Total = total
	snap.Inactive = FilterInactive(org, snap.Seats, s.thresholdDays, s.now())
	snap.seatsFetched = true
}

// All returns every cached snapshot keyed by organization.
func (s *Store) All() map[string]*Snapshot {
	return s.snapshots
}

// Organizations returns the cached organization names in sorted order.
func (s *Store) Organizations() []string {
	orgs := make([]string, 0, len(s.snapshots))
	for org := range s.snapshots {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	return orgs
}

// get returns the snapshot entry for org, creating it lazily.
func (s *Store) get(org string) *Snapshot {
	if snap, ok := s.snapshots[org]; ok {
		return snap
	}
	snap := &Snapshot{Organization: org}
	s.snapshots[org] = snap
	return snap
}

// fetchSeats retrieves all seat entitlements for the snapshot's
// organization via exhaustive pagination, then classifies and caches the
// inactive subset.
func (s *Store) fetchSeats(ctx context.Context, snap *Snapshot) error {
	logger := logging.FromContext(ctx)
	org := snap.Organization

	var all []Seat
	total := 0
	for page := 1; page <= maxPages; page++ {
		items, reportedTotal, err := s.source.ListSeats(ctx, org, page)
		if err != nil {
			if errors.IsSoft(err) {
				logger.Warn().
					Str("organization", org).
					AnErr("reason", err).
					Msg("Copilot seats unavailable, treating as empty")
				all = nil
				total = 0
				break
			}
			return err
		}

		total = reportedTotal
		for i := range items {
			items[i].Organization = org
		}
		all = append(all, items...)

		if len(all) >= total {
			break
		}
		if len(items) == 0 {
			// The reported total can go stale if seats are mutated
			// between page fetches; an empty page means there is
			// nothing more to read.
			logger.Warn().
				Str("organization", org).
				Int("reported_total", total).
				Int("fetched", len(all)).
				Msg("Seat listing ended before reaching reported total")
			break
		}
	}

	snap.Seats = append(snap.Seats, all...)
	snap.Total = total
	snap.Inactive = FilterInactive(org, snap.Seats, s.thresholdDays, s.now())
	snap.seatsFetched = true

	logger.Debug().
		Str("organization", org).
		Int("total_seats", snap.Total).
		Int("inactive", len(snap.Inactive)).
		Msg("Fetched seat entitlements")
	return nil
}

// fetchMembers retrieves the full membership roster for the snapshot's
// organization. An empty page terminates the loop.
func (s *Store) fetchMembers(ctx context.Context, snap *Snapshot) error {
	logger := logging.FromContext(ctx)
	org := snap.Organization

	var members []string
	for page := 1; page <= maxPages; page++ {
		items, err := s.source.ListMembers(ctx, org, page)
		if err != nil {
			if errors.IsSoft(err) {
				logger.Warn().
					Str("organization", org).
					AnErr("reason", err).
					Msg("Membership roster unavailable, treating as empty")
				members = nil
				break
			}
			return err
		}
		if len(items) == 0 {
			break
		}
		members = append(members, items...)
	}

	snap.SetMembers(members)

	logger.Debug().
		Str("organization", org).
		Int("members", len(members)).
		Msg("Fetched membership roster")
	return nil
}
