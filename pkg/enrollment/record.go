// Package enrollment implements the deploy path: parsing the declarative
// enrollment list, validating and time-windowing each record, and deciding
// skip/assign per record against the per-run organization snapshots.
package enrollment

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"github.com/seatsync/seatsync/pkg/errors"
)

// DateLayout is the calendar date format for activation dates.
const DateLayout = "2006-01-02"

// ErrOutOfWindow indicates an activation date outside the validation window.
var ErrOutOfWindow = errors.New("activation date out of validation window")

// recordColumns is the required CSV header, in order.
var recordColumns = []string{"organization", "deployment_group", "login", "activation_date"}

// Record is one row of the desired-state input: a user slated for seat
// assignment within an organization, labeled with a deployment group for
// reporting.
type Record struct {
	Organization   string `json:"organization"`
	Group          string `json:"deployment_group"`
	Login          string `json:"login"`
	ActivationDate string `json:"activation_date"`
}

// Validate checks the record against the reconciliation preconditions:
// all fields non-empty, a parseable activation date, and an activation
// date within [today − windowDays, today], inclusive on both ends.
// Empty-field and parse failures match errors.ErrInvalidInput; window
// failures match ErrOutOfWindow.
func (r Record) Validate(windowDays int, today time.Time) error {
	switch {
	case r.Organization == "":
		return errors.NewValidationError("organization", r.Organization, "must not be empty")
	case r.Group == "":
		return errors.NewValidationError("deployment_group", r.Group, "must not be empty")
	case r.Login == "":
		return errors.NewValidationError("login", r.Login, "must not be empty")
	case r.ActivationDate == "":
		return errors.NewValidationError("activation_date", r.ActivationDate, "must not be empty")
	}

	date, err := time.Parse(DateLayout, r.ActivationDate)
	if err != nil {
		return errors.NewValidationError("activation_date", r.ActivationDate, "must be a calendar date (YYYY-MM-DD)")
	}

	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	earliest := day.AddDate(0, 0, -windowDays)
	if date.Before(earliest) || date.After(day) {
		return ErrOutOfWindow
	}
	return nil
}

// ParseRecords reads enrollment records from CSV input. The first row
// must be the header "organization,deployment_group,login,activation_date";
// fields are trimmed and blank lines skipped. Structural CSV failures
// abort parsing; per-record content problems are left for Validate so
// malformed rows still count toward group tallies.
func ParseRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", "enrollment", err)
	}
	if len(rows) == 0 {
		return nil, errors.NewParseError("csv", "enrollment", "missing header row", nil)
	}

	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	var records []Record
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec := Record{}
		if len(row) > 0 {
			rec.Organization = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			rec.Group = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			rec.Login = strings.TrimSpace(row[2])
		}
		if len(row) > 3 {
			rec.ActivationDate = strings.TrimSpace(row[3])
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadRecords reads enrollment records from a CSV file. A missing file is
// a fatal configuration error for the whole run.
func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("enrollment", "enrollment file not readable: "+path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := ParseRecords(f)
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}
	return records, nil
}

// checkHeader verifies the CSV header names the expected columns.
func checkHeader(header []string) error {
	if len(header) < len(recordColumns) {
		return errors.NewParseError("csv", "enrollment", "header must name columns "+strings.Join(recordColumns, ","), nil)
	}
	for i, want := range recordColumns {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return errors.NewParseError("csv", "enrollment", "unexpected column "+strings.TrimSpace(header[i])+", want "+want, nil)
		}
	}
	return nil
}

// isBlank reports whether a CSV row contains no content.
func isBlank(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
