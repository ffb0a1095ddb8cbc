package enrollment

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatsync/seatsync/pkg/errors"
)

var today = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

func validRecord() Record {
	return Record{
		Organization:   "acme",
		Group:          "g1",
		Login:          "octocat",
		ActivationDate: "2024-06-14",
	}
}

func TestParseRecords(t *testing.T) {
	input := strings.Join([]string{
		"organization,deployment_group,login,activation_date",
		"acme, g1 , octocat ,2024-06-14",
		"",
		"   ,,,",
		"globex,g2,hubot,2024-06-15",
	}, "\n")

	records, err := ParseRecords(strings.NewReader(input))
	require.NoError(t, err)

	want := []Record{
		{Organization: "acme", Group: "g1", Login: "octocat", ActivationDate: "2024-06-14"},
		{Organization: "globex", Group: "g2", Login: "hubot", ActivationDate: "2024-06-15"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRecordsRejectsBadHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"wrong column name", "org,group,login,activation_date\nacme,g1,octocat,2024-06-14"},
		{"too few columns", "organization,deployment_group\nacme,g1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecords(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestParseRecordsKeepsMalformedRows(t *testing.T) {
	// Rows with missing fields survive parsing so they still count in
	// group tallies; Validate rejects them later.
	input := "organization,deployment_group,login,activation_date\nacme,g1,,2024-06-14"

	records, err := ParseRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Login)
}

func TestLoadRecordsMissingFileIsConfigError(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)

	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"empty organization", func(r *Record) { r.Organization = "" }},
		{"empty group", func(r *Record) { r.Group = "" }},
		{"empty login", func(r *Record) { r.Login = "" }},
		{"empty date", func(r *Record) { r.ActivationDate = "" }},
		{"unparseable date", func(r *Record) { r.ActivationDate = "14/06/2024" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			err := rec.Validate(3, today)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err), "want a validation error, got %v", err)
		})
	}
}

func TestValidateWindowInclusiveBoundary(t *testing.T) {
	window := 3
	tests := []struct {
		name string
		date string
		want error
	}{
		{"today", "2024-06-15", nil},
		{"two days ago", "2024-06-13", nil},
		{"exactly window days ago", "2024-06-12", nil},
		{"one day past the window", "2024-06-11", ErrOutOfWindow},
		{"five days ago", "2024-06-10", ErrOutOfWindow},
		{"tomorrow", "2024-06-16", ErrOutOfWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			rec.ActivationDate = tt.date
			err := rec.Validate(window, today)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
