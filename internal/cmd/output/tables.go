package output

import (
	"strconv"
	"time"

	"github.com/seatsync/seatsync/pkg/enrollment"
	"github.com/seatsync/seatsync/pkg/report"
	"github.com/seatsync/seatsync/pkg/seats"
)

const dateLayout = "2006-01-02"

// InactiveSeats shapes the inactive seat list for table output.
func InactiveSeats(seatList []seats.Seat, now time.Time) Data {
	data := Data{
		Headers: []string{"Organization", "Login", "Team", "Last Activity", "Days Inactive", "Editor"},
	}
	for _, seat := range seatList {
		team := ""
		if seat.AssigningTeam != nil {
			team = seat.AssigningTeam.Slug
		}
		last := "never"
		days := seats.DaysSince(seat.CreatedAt.Time, now)
		if seat.LastActivityAt != nil {
			last = seat.LastActivityAt.Format(dateLayout)
			days = seats.DaysSince(seat.LastActivityAt.Time, now)
		}
		data.Rows = append(data.Rows, []string{
			seat.Organization,
			seat.Login,
			team,
			last,
			strconv.Itoa(days),
			seat.LastActivityEditor,
		})
	}
	return data
}

// Tallies shapes the per-group counts for table output.
func Tallies(tallies []report.GroupTally) Data {
	data := Data{
		Headers: []string{"Deployment Group", "Total", "Deployed", "Inactive"},
	}
	for _, tally := range tallies {
		data.Rows = append(data.Rows, []string{
			tally.Group,
			strconv.Itoa(tally.Total),
			strconv.Itoa(tally.Deployed),
			strconv.Itoa(tally.Inactive),
		})
	}
	return data
}

// Decisions shapes the per-record reconciliation outcomes for table output.
func Decisions(decisions []enrollment.Decision) Data {
	data := Data{
		Headers: []string{"Organization", "Login", "Group", "Outcome", "Reason"},
	}
	for _, d := range decisions {
		data.Rows = append(data.Rows, []string{
			d.Record.Organization,
			d.Record.Login,
			d.Record.Group,
			string(d.Outcome),
			d.Reason,
		})
	}
	return data
}
