package enrollment

import (
	"context"
	"strings"
	"time"

	"github.com/seatsync/seatsync/pkg/errors"
	"github.com/seatsync/seatsync/pkg/logging"
	"github.com/seatsync/seatsync/pkg/seats"
)

// Outcome is the decision taken for one enrollment record.
type Outcome string

// Per-record reconciliation outcomes.
const (
	OutcomeSkippedInvalid       Outcome = "skipped-invalid"
	OutcomeSkippedOutOfWindow   Outcome = "skipped-out-of-window"
	OutcomeSkippedNotMember     Outcome = "skipped-not-member"
	OutcomeSkippedAlreadySeated Outcome = "skipped-already-seated"
	OutcomeAssigned             Outcome = "assigned"
	OutcomeAssignedDryRun       Outcome = "assigned-dry-run"
)

// Deployed reports whether the outcome added the record to the deployed list.
func (o Outcome) Deployed() bool {
	return o == OutcomeAssigned || o == OutcomeAssignedDryRun
}

// Decision pairs an enrollment record with its reconciliation outcome.
type Decision struct {
	Record  Record  `json:"record"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Assigner issues seat assignment requests. A single request may create
// more than one seat.
type Assigner interface {
	AssignSeats(ctx context.Context, org string, logins []string) (int, error)
}

// Result collects the outputs of one reconciliation pass.
type Result struct {
	Decisions    []Decision `json:"decisions"`
	Deployed     []Record   `json:"deployed"`
	SeatsCreated int        `json:"seats_created"`
}

// Reconciler walks enrollment records sequentially and decides skip or
// assign per record. Snapshots are read through the store by reference
// and never mutated; logins assigned during the run are tracked locally
// so a duplicate record resolves to skipped-already-seated in both real
// and dry-run modes.
type Reconciler struct {
	store      *seats.Store
	assigner   Assigner
	windowDays int
	dryRun     bool
	now        func() time.Time

	assigned map[string]map[string]struct{}
	created  int
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerClock overrides the reconciler's time source. Used in tests.
func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a reconciler over the given snapshot store.
func NewReconciler(store *seats.Store, assigner Assigner, windowDays int, dryRun bool, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:      store,
		assigner:   assigner,
		windowDays: windowDays,
		dryRun:     dryRun,
		now:        time.Now,
		assigned:   make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile processes records in order and returns the per-record
// decisions, the deployed list, and the count of seats created.
//
// Record-level validation failures and soft remote failures are logged
// and skipped; a hard assignment failure aborts the remainder of the run
// and returns the partial result alongside the error.
func (r *Reconciler) Reconcile(ctx context.Context, records []Record) (*Result, error) {
	logger := logging.FromContext(ctx)
	result := &Result{}
	today := r.now()

	for _, rec := range records {
		decision, err := r.decide(ctx, rec, today)
		result.Decisions = append(result.Decisions, decision)
		if decision.Outcome.Deployed() {
			result.Deployed = append(result.Deployed, rec)
		}
		if err != nil {
			result.SeatsCreated = r.created
			return result, err
		}

		switch decision.Outcome {
		case OutcomeSkippedNotMember:
			logger.Warn().
				Str("organization", rec.Organization).
				Str("login", rec.Login).
				Msg("Enrollment login is not an organization member")
		case OutcomeSkippedInvalid, OutcomeSkippedOutOfWindow:
			logger.Info().
				Str("organization", rec.Organization).
				Str("login", rec.Login).
				Str("reason", decision.Reason).
				Msg("Skipping enrollment record")
		case OutcomeSkippedAlreadySeated:
			logger.Debug().
				Str("organization", rec.Organization).
				Str("login", rec.Login).
				Msg("Login already holds a seat")
		}
	}

	result.SeatsCreated = r.created
	return result, nil
}

// decide resolves a single record to an outcome.
func (r *Reconciler) decide(ctx context.Context, rec Record, today time.Time) (Decision, error) {
	if err := rec.Validate(r.windowDays, today); err != nil {
		outcome := OutcomeSkippedInvalid
		if errors.Is(err, ErrOutOfWindow) {
			outcome = OutcomeSkippedOutOfWindow
		}
		return Decision{Record: rec, Outcome: outcome, Reason: err.Error()}, nil
	}

	snap, err := r.store.Snapshot(ctx, rec.Organization)
	if err != nil {
		// A failed snapshot fetch skips the record, not the run.
		logging.FromContext(ctx).Error().
			Err(err).
			Str("organization", rec.Organization).
			Msg("Failed to load organization snapshot")
		return Decision{Record: rec, Outcome: OutcomeSkippedInvalid, Reason: "organization snapshot unavailable"}, nil
	}

	if !snap.IsMember(rec.Login) {
		return Decision{Record: rec, Outcome: OutcomeSkippedNotMember}, nil
	}

	if snap.HasActiveSeat(rec.Login) || r.assignedThisRun(rec.Organization, rec.Login) {
		return Decision{Record: rec, Outcome: OutcomeSkippedAlreadySeated}, nil
	}

	if r.dryRun {
		r.markAssigned(rec.Organization, rec.Login)
		return Decision{Record: rec, Outcome: OutcomeAssignedDryRun}, nil
	}

	created, err := r.assigner.AssignSeats(ctx, rec.Organization, []string{rec.Login})
	if err != nil {
		if errors.IsCopilotNotEnabled(err) {
			logging.FromContext(ctx).Warn().
				Str("organization", rec.Organization).
				Str("login", rec.Login).
				Msg("Copilot not enabled, skipping assignment")
			return Decision{Record: rec, Outcome: OutcomeSkippedInvalid, Reason: "copilot not enabled"}, nil
		}
		return Decision{Record: rec, Outcome: OutcomeSkippedInvalid, Reason: err.Error()},
			errors.WrapAPI("seat assignment", 0, err)
	}

	r.created += created
	r.markAssigned(rec.Organization, rec.Login)
	return Decision{Record: rec, Outcome: OutcomeAssigned}, nil
}

// assignedThisRun reports whether login was already assigned during this
// reconciliation pass.
func (r *Reconciler) assignedThisRun(org, login string) bool {
	_, ok := r.assigned[org][strings.ToLower(login)]
	return ok
}

// markAssigned records an assignment (real or dry-run) for idempotence
// within the run.
func (r *Reconciler) markAssigned(org, login string) {
	if r.assigned[org] == nil {
		r.assigned[org] = make(map[string]struct{})
	}
	r.assigned[org][strings.ToLower(login)] = struct{}{}
}
