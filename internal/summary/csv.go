package summary

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/seatsync/seatsync/pkg/errors"
	"github.com/seatsync/seatsync/pkg/seats"
)

// WriteInactiveCSV writes the inactive seat list to path as CSV, one row
// per seat, for downstream automation.
func WriteInactiveCSV(path string, seatList []seats.Seat, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"organization", "login", "assigning_team", "last_activity", "days_inactive", "last_activity_editor"}); err != nil {
		return errors.WrapIO("write", path, err)
	}

	for _, seat := range seatList {
		team := ""
		if seat.AssigningTeam != nil {
			team = seat.AssigningTeam.Slug
		}
		last := ""
		days := seats.DaysSince(seat.CreatedAt.Time, now)
		if seat.LastActivityAt != nil {
			last = seat.LastActivityAt.Format(dateLayout)
			days = seats.DaysSince(seat.LastActivityAt.Time, now)
		}
		row := []string{seat.Organization, seat.Login, team, last, strconv.Itoa(days), seat.LastActivityEditor}
		if err := w.Write(row); err != nil {
			return errors.WrapIO("write", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.WrapIO("flush", path, err)
	}
	return nil
}
