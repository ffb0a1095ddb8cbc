package enrollment

import (
	"context"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatsync/seatsync/pkg/errors"
	"github.com/seatsync/seatsync/pkg/seats"
)

var reconcileNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

// fakeOrgSource backs the snapshot store in reconciler tests.
type fakeOrgSource struct {
	seats   map[string][]seats.Seat
	members map[string][]string
	seatErr map[string]error
}

func (f *fakeOrgSource) ListSeats(_ context.Context, org string, page int) ([]seats.Seat, int, error) {
	if err := f.seatErr[org]; err != nil {
		return nil, 0, err
	}
	if page > 1 {
		return nil, len(f.seats[org]), nil
	}
	return f.seats[org], len(f.seats[org]), nil
}

func (f *fakeOrgSource) ListMembers(_ context.Context, org string, page int) ([]string, error) {
	if page > 1 {
		return nil, nil
	}
	return f.members[org], nil
}

// fakeAssigner records assignment requests.
type fakeAssigner struct {
	calls [][2]string // (org, login)
	err   error
}

func (f *fakeAssigner) AssignSeats(_ context.Context, org string, logins []string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	for _, l := range logins {
		f.calls = append(f.calls, [2]string{org, l})
	}
	return len(logins), nil
}

func activeSeat(login string) seats.Seat {
	return seats.Seat{
		Login:          login,
		CreatedAt:      utc.Time{Time: reconcileNow.AddDate(0, 0, -10)},
		LastActivityAt: &utc.Time{Time: reconcileNow.AddDate(0, 0, -1)},
	}
}

func newTestReconciler(src seats.Source, assigner Assigner, dryRun bool) *Reconciler {
	store := seats.NewStore(src, 90, seats.WithClock(func() time.Time { return reconcileNow }))
	return NewReconciler(store, assigner, 3, dryRun,
		WithReconcilerClock(func() time.Time { return reconcileNow }))
}

func rec(org, group, login, date string) Record {
	return Record{Organization: org, Group: group, Login: login, ActivationDate: date}
}

func outcomes(result *Result) []Outcome {
	out := make([]Outcome, len(result.Decisions))
	for i, d := range result.Decisions {
		out[i] = d.Outcome
	}
	return out
}

func TestReconcileDecisions(t *testing.T) {
	src := &fakeOrgSource{
		seats:   map[string][]seats.Seat{"acme": {activeSeat("seated")}},
		members: map[string][]string{"acme": {"seated", "newbie", "windowed"}},
	}
	assigner := &fakeAssigner{}
	r := newTestReconciler(src, assigner, false)

	records := []Record{
		rec("acme", "g1", "", "2024-06-14"),         // empty login
		rec("acme", "g1", "windowed", "2024-06-01"), // out of window
		rec("acme", "g1", "stranger", "2024-06-14"), // not a member
		rec("acme", "g1", "seated", "2024-06-14"),   // already seated
		rec("acme", "g1", "newbie", "2024-06-14"),   // assigned
	}

	result, err := r.Reconcile(context.Background(), records)
	require.NoError(t, err)

	want := []Outcome{
		OutcomeSkippedInvalid,
		OutcomeSkippedOutOfWindow,
		OutcomeSkippedNotMember,
		OutcomeSkippedAlreadySeated,
		OutcomeAssigned,
	}
	assert.Equal(t, want, outcomes(result))
	assert.Equal(t, [][2]string{{"acme", "newbie"}}, assigner.calls)
	assert.Equal(t, []Record{records[4]}, result.Deployed)
	assert.Equal(t, 1, result.SeatsCreated)
}

func TestReconcileDuplicateRecordIsAlreadySeated(t *testing.T) {
	src := &fakeOrgSource{
		members: map[string][]string{"acme": {"newbie"}},
	}

	for _, dryRun := range []bool{false, true} {
		name := "real"
		if dryRun {
			name = "dry-run"
		}
		t.Run(name, func(t *testing.T) {
			assigner := &fakeAssigner{}
			r := newTestReconciler(src, assigner, dryRun)

			records := []Record{
				rec("acme", "g1", "newbie", "2024-06-14"),
				rec("acme", "g1", "newbie", "2024-06-14"),
			}
			result, err := r.Reconcile(context.Background(), records)
			require.NoError(t, err)

			assert.Equal(t, OutcomeSkippedAlreadySeated, result.Decisions[1].Outcome)
			assert.Len(t, result.Deployed, 1, "duplicate must not double-assign")
		})
	}
}

func TestReconcileDryRunNeverCallsAssigner(t *testing.T) {
	src := &fakeOrgSource{
		members: map[string][]string{"acme": {"newbie", "second"}},
	}
	records := []Record{
		rec("acme", "g1", "newbie", "2024-06-14"),
		rec("acme", "g1", "second", "2024-06-14"),
	}

	dryAssigner := &fakeAssigner{}
	dry := newTestReconciler(src, dryAssigner, true)
	dryResult, err := dry.Reconcile(context.Background(), records)
	require.NoError(t, err)

	liveAssigner := &fakeAssigner{}
	live := newTestReconciler(&fakeOrgSource{
		members: map[string][]string{"acme": {"newbie", "second"}},
	}, liveAssigner, false)
	liveResult, err := live.Reconcile(context.Background(), records)
	require.NoError(t, err)

	assert.Empty(t, dryAssigner.calls, "dry run must not touch the assignment sink")
	assert.Equal(t, liveResult.Deployed, dryResult.Deployed,
		"dry run deployed list matches a real run with an always-succeeding sink")
	for _, d := range dryResult.Decisions {
		assert.Equal(t, OutcomeAssignedDryRun, d.Outcome)
	}
}

func TestReconcileSnapshotFailureSkipsRecord(t *testing.T) {
	src := &fakeOrgSource{
		seatErr: map[string]error{"broken": errors.NewAPIError("seats", 403, "forbidden")},
		members: map[string][]string{"acme": {"newbie"}},
	}
	assigner := &fakeAssigner{}
	r := newTestReconciler(src, assigner, false)

	records := []Record{
		rec("broken", "g1", "ghost", "2024-06-14"),
		rec("acme", "g1", "newbie", "2024-06-14"),
	}
	result, err := r.Reconcile(context.Background(), records)
	require.NoError(t, err, "a failed snapshot fetch must not abort the run")

	assert.Equal(t, OutcomeSkippedInvalid, result.Decisions[0].Outcome)
	assert.Equal(t, OutcomeAssigned, result.Decisions[1].Outcome)
}

func TestReconcileCopilotNotEnabledContinues(t *testing.T) {
	src := &fakeOrgSource{
		members: map[string][]string{"acme": {"newbie", "second"}},
	}
	assigner := &fakeAssigner{err: errors.NewAPIError("assignment", 422, "not enabled")}
	r := newTestReconciler(src, assigner, false)

	records := []Record{
		rec("acme", "g1", "newbie", "2024-06-14"),
		rec("acme", "g1", "second", "2024-06-14"),
	}
	result, err := r.Reconcile(context.Background(), records)
	require.NoError(t, err)
	assert.Len(t, result.Decisions, 2, "not-enabled failures do not abort the run")
	assert.Empty(t, result.Deployed)
}

func TestReconcileHardAssignmentFailureAborts(t *testing.T) {
	src := &fakeOrgSource{
		members: map[string][]string{"acme": {"newbie", "second"}},
	}
	assigner := &fakeAssigner{err: errors.NewAPIError("assignment", 500, "boom")}
	r := newTestReconciler(src, assigner, false)

	records := []Record{
		rec("acme", "g1", "newbie", "2024-06-14"),
		rec("acme", "g1", "second", "2024-06-14"),
	}
	result, err := r.Reconcile(context.Background(), records)
	require.Error(t, err)
	assert.Len(t, result.Decisions, 1, "remaining records are not processed after a hard failure")
}

func TestReconcilePendingCancellationIsReassignable(t *testing.T) {
	pending := utc.Time{Time: reconcileNow.AddDate(0, 0, 7)}
	seat := activeSeat("leaver")
	seat.PendingCancellationDate = &pending

	src := &fakeOrgSource{
		seats:   map[string][]seats.Seat{"acme": {seat}},
		members: map[string][]string{"acme": {"leaver"}},
	}
	assigner := &fakeAssigner{}
	r := newTestReconciler(src, assigner, false)

	result, err := r.Reconcile(context.Background(), []Record{rec("acme", "g1", "leaver", "2024-06-14")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAssigned, result.Decisions[0].Outcome,
		"a seat pending cancellation does not block reassignment")
}
