// Package summary renders a run's outputs as a Markdown job summary and
// as CSV artifacts for downstream automation.
package summary

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	md "github.com/nao1215/markdown"

	"github.com/seatsync/seatsync/internal/job"
	"github.com/seatsync/seatsync/pkg/seats"
)

// stepSummaryEnv is the file the CI runner appends job summaries to.
const stepSummaryEnv = "GITHUB_STEP_SUMMARY"

const dateLayout = "2006-01-02"

// WriteMarkdown renders the run summary as Markdown.
func WriteMarkdown(w io.Writer, out *job.Outputs, dryRun bool, now time.Time) error {
	doc := md.NewMarkdown(w)

	title := "Copilot Seat Reconciliation"
	if dryRun {
		title += " (dry run)"
	}
	doc.H1(title)

	doc.Table(md.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Total seats", strconv.Itoa(out.TotalSeats)},
			{"Inactive seats", strconv.Itoa(len(out.Inactive))},
			{"Seats created", strconv.Itoa(out.SeatsCreated)},
			{"Seats removed", strconv.Itoa(out.RemovedCount)},
		},
	})

	if len(out.Inactive) > 0 {
		doc.H2("Inactive Seats")
		doc.Table(md.TableSet{
			Header: []string{"Organization", "Login", "Last Activity", "Days Inactive"},
			Rows:   inactiveRows(out.Inactive, now),
		})
	}

	if len(out.Tallies) > 0 {
		doc.H2("Deployment Groups")
		rows := make([][]string, 0, len(out.Tallies))
		for _, tally := range out.Tallies {
			rows = append(rows, []string{
				tally.Group,
				strconv.Itoa(tally.Total),
				strconv.Itoa(tally.Deployed),
				strconv.Itoa(tally.Inactive),
			})
		}
		doc.Table(md.TableSet{
			Header: []string{"Group", "Total", "Deployed", "Inactive"},
			Rows:   rows,
		})
	}

	if len(out.FailedOrgs) > 0 {
		doc.H2("Failed Organizations")
		doc.BulletList(out.FailedOrgs...)
	}

	return doc.Build()
}

// WriteStepSummary appends the Markdown summary to the CI runner's job
// summary file when the environment provides one. A run outside CI is a
// no-op.
func WriteStepSummary(out *job.Outputs, dryRun bool, now time.Time) error {
	path := os.Getenv(stepSummaryEnv)
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open step summary file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return WriteMarkdown(f, out, dryRun, now)
}

// inactiveRows shapes seats into summary table rows.
func inactiveRows(seatList []seats.Seat, now time.Time) [][]string {
	rows := make([][]string, 0, len(seatList))
	for _, seat := range seatList {
		last := "never"
		days := seats.DaysSince(seat.CreatedAt.Time, now)
		if seat.LastActivityAt != nil {
			last = seat.LastActivityAt.Format(dateLayout)
			days = seats.DaysSince(seat.LastActivityAt.Time, now)
		}
		rows = append(rows, []string{seat.Organization, seat.Login, last, strconv.Itoa(days)})
	}
	return rows
}
