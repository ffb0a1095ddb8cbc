// Package job orchestrates one scheduled reconciliation run: loading the
// enrollment list, snapshotting the target organizations, reconciling
// deployments, executing removals, and folding the results into report
// structures. A failure in one organization never aborts the others; the
// run always produces outputs for whatever completed.
package job

import (
	"context"

	"github.com/seatsync/seatsync/pkg/enrollment"
	"github.com/seatsync/seatsync/pkg/errors"
	"github.com/seatsync/seatsync/pkg/logging"
	"github.com/seatsync/seatsync/pkg/report"
	"github.com/seatsync/seatsync/pkg/revoke"
	"github.com/seatsync/seatsync/pkg/seats"
)

// maxEnterprisePages bounds enterprise seat pagination the same way the
// snapshot store bounds organization pagination.
const maxEnterprisePages = 1000

// API is the remote surface one run depends on.
type API interface {
	seats.Source
	enrollment.Assigner
	revoke.API

	ListEnterpriseSeats(ctx context.Context, enterprise string, page int) ([]seats.Seat, int, error)
}

// Config carries the per-run settings resolved by the CLI layer.
type Config struct {
	Orgs            []string
	Enterprise      string
	InactiveDays    int
	WindowDays      int
	DryRun          bool
	RemoveInactive  bool
	RemoveFromTeams bool
	EnrollmentFile  string
}

// Validate checks the configuration before any remote call is made.
func (c Config) Validate() error {
	if len(c.Orgs) == 0 && c.Enterprise == "" {
		return errors.NewConfigError("job", "at least one organization or an enterprise is required", nil)
	}
	if c.InactiveDays <= 0 {
		return errors.NewConfigError("job", "inactive-days must be positive", nil)
	}
	if c.WindowDays < 0 {
		return errors.NewConfigError("job", "window-days must not be negative", nil)
	}
	return nil
}

// Outputs collects everything a run produced, even when parts of it
// failed. Counts are derived from the snapshots cached during the run.
type Outputs struct {
	Records      []enrollment.Record   `json:"records,omitempty"`
	Decisions    []enrollment.Decision `json:"decisions,omitempty"`
	Deployed     []enrollment.Record   `json:"deployed,omitempty"`
	SeatsCreated int                   `json:"seats_created"`

	TotalSeats   int          `json:"total_seats"`
	Inactive     []seats.Seat `json:"inactive,omitempty"`
	RemovedCount int          `json:"removed_count"`

	Tallies []report.GroupTally `json:"tallies,omitempty"`

	FailedOrgs []string `json:"failed_orgs,omitempty"`
}

// Job wires one run's collaborators around a shared snapshot store.
type Job struct {
	api   API
	cfg   Config
	store *seats.Store
}

// New creates a run over the given API.
func New(api API, cfg Config) *Job {
	return &Job{
		api:   api,
		cfg:   cfg,
		store: seats.NewStore(api, cfg.InactiveDays),
	}
}

// Run executes the full reconciliation pass. The returned outputs are
// always usable; the error joins the failures of whatever parts did not
// complete.
func (j *Job) Run(ctx context.Context) (*Outputs, error) {
	logger := logging.FromContext(ctx)
	out := &Outputs{}

	if err := j.cfg.Validate(); err != nil {
		return out, err
	}

	// The enrollment list is read before any remote call so a bad input
	// file fails the run without touching the API.
	var records []enrollment.Record
	if j.cfg.EnrollmentFile != "" {
		var err error
		records, err = enrollment.LoadRecords(j.cfg.EnrollmentFile)
		if err != nil {
			return out, err
		}
		out.Records = records
		logger.Info().
			Int("records", len(records)).
			Str("file", j.cfg.EnrollmentFile).
			Msg("Loaded enrollment records")
	}

	var errs []error

	// An enterprise target supersedes the organization list: the org set
	// is derived from the enterprise's own seat listing.
	if j.cfg.Enterprise != "" {
		if err := j.seedEnterprise(ctx); err != nil {
			errs = append(errs, err)
		}
	} else {
		for _, org := range j.cfg.Orgs {
			if _, err := j.store.Snapshot(ctx, org); err != nil {
				logger.Error().
					Err(err).
					Str("organization", org).
					Msg("Failed to snapshot organization, continuing with the rest")
				out.FailedOrgs = append(out.FailedOrgs, org)
				errs = append(errs, err)
			}
		}
	}

	if len(records) > 0 {
		reconciler := enrollment.NewReconciler(j.store, j.api, j.cfg.WindowDays, j.cfg.DryRun)
		result, err := reconciler.Reconcile(ctx, records)
		out.Decisions = result.Decisions
		out.Deployed = result.Deployed
		out.SeatsCreated = result.SeatsCreated
		if err != nil {
			logger.Error().Err(err).Msg("Enrollment reconciliation aborted")
			errs = append(errs, err)
		}
	}

	if j.cfg.RemoveInactive {
		j.removeInactive(ctx, out, &errs)
	}

	for _, org := range j.store.Organizations() {
		snap, _ := j.store.Cached(org)
		out.TotalSeats += snap.Total
		out.Inactive = append(out.Inactive, snap.Inactive...)
	}

	out.Tallies = report.Tally(records, out.Deployed, j.store.All())

	logger.Info().
		Int("total_seats", out.TotalSeats).
		Int("inactive", len(out.Inactive)).
		Int("seats_created", out.SeatsCreated).
		Int("removed", out.RemovedCount).
		Bool("dry_run", j.cfg.DryRun).
		Msg("Run complete")
	return out, errors.Join(errs...)
}

// seedEnterprise pages through the enterprise seat listing and seeds the
// store with each organization's share so per-org processing reuses the
// snapshots without refetching.
func (j *Job) seedEnterprise(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	var all []seats.Seat
	total := 0
	for page := 1; page <= maxEnterprisePages; page++ {
		items, reportedTotal, err := j.api.ListEnterpriseSeats(ctx, j.cfg.Enterprise, page)
		if err != nil {
			if errors.IsSoft(err) {
				logger.Warn().
					Str("enterprise", j.cfg.Enterprise).
					AnErr("reason", err).
					Msg("Enterprise seats unavailable, treating as empty")
				return nil
			}
			return err
		}

		total = reportedTotal
		all = append(all, items...)

		if len(all) >= total {
			break
		}
		if len(items) == 0 {
			logger.Warn().
				Str("enterprise", j.cfg.Enterprise).
				Int("reported_total", total).
				Int("fetched", len(all)).
				Msg("Enterprise seat listing ended before reaching reported total")
			break
		}
	}

	byOrg := make(map[string][]seats.Seat)
	for _, seat := range all {
		byOrg[seat.Organization] = append(byOrg[seat.Organization], seat)
	}
	for org, orgSeats := range byOrg {
		j.store.Seed(org, orgSeats, len(orgSeats))
	}

	logger.Info().
		Str("enterprise", j.cfg.Enterprise).
		Int("seats", len(all)).
		Int("organizations", len(byOrg)).
		Msg("Seeded enterprise seat snapshots")
	return nil
}

// removeInactive builds and executes one removal plan per cached
// organization. In dry-run mode plans are logged but never executed.
// A failing organization is recorded and the rest still run.
func (j *Job) removeInactive(ctx context.Context, out *Outputs, errs *[]error) {
	logger := logging.FromContext(ctx)
	planner := revoke.NewPlanner(j.api, j.cfg.RemoveFromTeams)

	for _, org := range j.store.Organizations() {
		snap, _ := j.store.Cached(org)
		plan := revoke.BuildPlan(snap)
		if plan.Empty() {
			continue
		}

		if j.cfg.DryRun {
			logger.Info().
				Str("organization", org).
				Int("individual", len(plan.Individual)).
				Int("team", len(plan.Team)).
				Msg("Dry run, skipping seat removals")
			continue
		}

		if _, err := planner.Execute(ctx, plan); err != nil {
			logger.Error().
				Err(err).
				Str("organization", org).
				Msg("Seat removal aborted, continuing with the rest")
			out.FailedOrgs = append(out.FailedOrgs, org)
			*errs = append(*errs, err)
		}
	}

	out.RemovedCount = planner.TotalRemoved()
}
