package seats

import (
	"sort"
	"time"
)

// millisPerDay is the number of milliseconds in one calendar day.
const millisPerDay = 24 * 60 * 60 * 1000

// DaysSince returns the number of whole days elapsed between t and now,
// rounding any partial day up. An elapsed time of exactly N days yields N;
// one more millisecond yields N+1.
func DaysSince(t, now time.Time) int {
	ms := now.Sub(t).Milliseconds()
	if ms <= 0 {
		return 0
	}
	days := ms / millisPerDay
	if ms%millisPerDay != 0 {
		days++
	}
	return int(days)
}

// lastActivity returns the reference timestamp for classification:
// the last recorded activity, or the seat creation time when the
// assignee has never shown activity.
func lastActivity(seat Seat) (time.Time, bool) {
	if seat.LastActivityAt != nil {
		return seat.LastActivityAt.Time, true
	}
	return seat.CreatedAt.Time, false
}

// Inactive classifies a single seat against a staleness threshold.
// A seat is inactive iff strictly more than thresholdDays whole days
// (ceiling) have elapsed since its last activity; a seat exactly at the
// threshold boundary is still active.
func Inactive(seat Seat, thresholdDays int, now time.Time) bool {
	ref, _ := lastActivity(seat)
	return DaysSince(ref, now) > thresholdDays
}

// FilterInactive returns the inactive subset of seatList, each annotated
// with the owning organization, sorted for reporting: seats with no
// activity timestamp first (treated as oldest), then ascending by last
// activity, ties broken by insertion order.
func FilterInactive(org string, seatList []Seat, thresholdDays int, now time.Time) []Seat {
	var inactive []Seat
	for _, seat := range seatList {
		if Inactive(seat, thresholdDays, now) {
			seat.Organization = org
			inactive = append(inactive, seat)
		}
	}
	SortByActivity(inactive)
	return inactive
}

// SortByActivity sorts seats ascending by last activity timestamp.
// Seats with no recorded activity sort before all others. The sort is
// stable so equal timestamps keep insertion order.
func SortByActivity(seatList []Seat) {
	sort.SliceStable(seatList, func(i, j int) bool {
		ti, iHas := seatList[i].LastActivityAt, seatList[i].LastActivityAt != nil
		tj, jHas := seatList[j].LastActivityAt, seatList[j].LastActivityAt != nil
		switch {
		case !iHas && !jHas:
			return false
		case !iHas:
			return true
		case !jHas:
			return false
		default:
			return ti.Time.Before(tj.Time)
		}
	})
}
