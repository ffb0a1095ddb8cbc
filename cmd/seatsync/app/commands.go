package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seatsync/seatsync/internal/cmd/output"
	"github.com/seatsync/seatsync/internal/job"
	"github.com/seatsync/seatsync/internal/summary"
	"github.com/seatsync/seatsync/pkg/enrollment"
	"github.com/seatsync/seatsync/pkg/errors"
	"github.com/seatsync/seatsync/pkg/logging"
)

// NewRunCommand creates the run command, the scheduled entry point.
func (a *App) NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one seat reconciliation pass",
		Long: `Run snapshots each target organization's Copilot seats and membership
roster, reconciles the enrollment file against them, optionally removes
seats inactive past the threshold, and prints the resulting report.

Dry-run is the default; pass --dry-run=false to apply changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReconciliation(cmd)
		},
	}

	cmd.Flags().StringSliceVar(&a.config.Orgs, "orgs", a.config.Orgs, "organizations to reconcile")
	cmd.Flags().StringVar(&a.config.Enterprise, "enterprise", a.config.Enterprise, "enterprise whose seats to snapshot (grouped by organization)")
	cmd.Flags().IntVar(&a.config.InactiveDays, "inactive-days", a.config.InactiveDays, "days without activity before a seat counts as inactive")
	cmd.Flags().IntVar(&a.config.WindowDays, "window-days", a.config.WindowDays, "accept activation dates up to this many days in the past")
	cmd.Flags().BoolVar(&a.config.DryRun, "dry-run", a.config.DryRun, "decide without mutating any seats")
	cmd.Flags().BoolVar(&a.config.RemoveInactive, "remove", a.config.RemoveInactive, "revoke seats inactive past the threshold")
	cmd.Flags().BoolVar(&a.config.RemoveFromTeams, "remove-from-team", a.config.RemoveFromTeams, "also remove team-assigned inactive seat holders from their assigning team")
	cmd.Flags().StringVar(&a.config.EnrollmentFile, "enrollment-file", a.config.EnrollmentFile, "CSV of users to enroll (organization,deployment_group,login,activation_date)")
	cmd.Flags().StringVar(&a.config.CSVOut, "csv-out", a.config.CSVOut, "write the inactive seat list to this CSV file")
	cmd.Flags().BoolVar(&a.config.Summary, "summary", a.config.Summary, "append a Markdown summary to GITHUB_STEP_SUMMARY")

	return cmd
}

// runReconciliation executes one job and renders its outputs. The report
// is written even when parts of the run failed.
func (a *App) runReconciliation(cmd *cobra.Command) error {
	ctx := logging.WithLogger(cmd.Context(), a.logger)

	format, err := output.ParseFormat(a.config.Format)
	if err != nil {
		return err
	}
	format = output.DetectFormat(string(format))

	client, err := a.Client()
	if err != nil {
		return err
	}

	j := job.New(client, job.Config{
		Orgs:            a.config.Orgs,
		Enterprise:      a.config.Enterprise,
		InactiveDays:    a.config.InactiveDays,
		WindowDays:      a.config.WindowDays,
		DryRun:          a.config.DryRun,
		RemoveInactive:  a.config.RemoveInactive,
		RemoveFromTeams: a.config.RemoveFromTeams,
		EnrollmentFile:  a.config.EnrollmentFile,
	})

	out, runErr := j.Run(ctx)
	now := time.Now()

	if err := a.render(cmd, format, out, now); err != nil {
		return errors.Join(runErr, err)
	}

	if a.config.CSVOut != "" {
		if err := summary.WriteInactiveCSV(a.config.CSVOut, out.Inactive, now); err != nil {
			return errors.Join(runErr, err)
		}
	}

	if a.config.Summary {
		if err := summary.WriteStepSummary(out, a.config.DryRun, now); err != nil {
			return errors.Join(runErr, err)
		}
	}

	return runErr
}

// render writes the run outputs in the requested format. Table output is
// sectioned; JSON and YAML emit the whole structure.
func (a *App) render(cmd *cobra.Command, format output.Format, out *job.Outputs, now time.Time) error {
	formatter := output.NewFormatter(format)
	w := cmd.OutOrStdout()

	if format != output.FormatTable {
		return formatter.Format(w, out)
	}

	if len(out.Decisions) > 0 {
		cmd.Println("Enrollment decisions:")
		if err := formatter.Format(w, output.Decisions(out.Decisions)); err != nil {
			return err
		}
	}
	if len(out.Inactive) > 0 {
		cmd.Println("Inactive seats:")
		if err := formatter.Format(w, output.InactiveSeats(out.Inactive, now)); err != nil {
			return err
		}
	}
	if len(out.Tallies) > 0 {
		cmd.Println("Deployment groups:")
		if err := formatter.Format(w, output.Tallies(out.Tallies)); err != nil {
			return err
		}
	}

	cmd.Printf("Total seats: %d  Inactive: %d  Created: %d  Removed: %d\n",
		out.TotalSeats, len(out.Inactive), out.SeatsCreated, out.RemovedCount)
	return nil
}

// NewValidateCommand creates the validate command, an offline lint for
// enrollment files.
func (a *App) NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an enrollment file without touching the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.validateEnrollment(cmd)
		},
	}

	cmd.Flags().StringVar(&a.config.EnrollmentFile, "enrollment-file", a.config.EnrollmentFile, "CSV of users to enroll")
	cmd.Flags().IntVar(&a.config.WindowDays, "window-days", a.config.WindowDays, "accept activation dates up to this many days in the past")

	return cmd
}

// validateEnrollment parses the enrollment file and reports per-record
// validation results. Any invalid record fails the command.
func (a *App) validateEnrollment(cmd *cobra.Command) error {
	if a.config.EnrollmentFile == "" {
		return errors.NewConfigError("validate", "--enrollment-file is required", nil)
	}

	records, err := enrollment.LoadRecords(a.config.EnrollmentFile)
	if err != nil {
		return err
	}

	today := time.Now()
	data := output.Data{Headers: []string{"Organization", "Login", "Group", "Result"}}
	invalid := 0
	for _, rec := range records {
		result := "ok"
		if err := rec.Validate(a.config.WindowDays, today); err != nil {
			result = err.Error()
			invalid++
		}
		data.Rows = append(data.Rows, []string{rec.Organization, rec.Login, rec.Group, result})
	}

	formatter := output.NewFormatter(output.DetectFormat(a.config.Format))
	if err := formatter.Format(cmd.OutOrStdout(), data); err != nil {
		return err
	}

	if invalid > 0 {
		return errors.NewValidationError("enrollment", a.config.EnrollmentFile,
			fmt.Sprintf("%d of %d records invalid", invalid, len(records)))
	}
	cmd.Printf("%d records valid\n", len(records))
	return nil
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("seatsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
