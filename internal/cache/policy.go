package cache

import "time"

// Policy decides whether an entry written at writtenAt is fresh at now
type Policy interface {
	Fresh(writtenAt, now time.Time) bool
}

// TTL is fresh while the entry's age is strictly below the duration
type TTL time.Duration

// Fresh implements Policy
func (d TTL) Fresh(writtenAt, now time.Time) bool {
	return now.Sub(writtenAt) < time.Duration(d)
}

// SameDay is fresh while the entry was written on the current calendar day
// in Location (local time when nil)
type SameDay struct {
	Location *time.Location
}

// Fresh implements Policy
func (p SameDay) Fresh(writtenAt, now time.Time) bool {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	wy, wm, wd := writtenAt.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return wy == ny && wm == nm && wd == nd
}

// Freshness windows per dataset
const (
	BoardTTL     = TTL(time.Hour)
	UniverseTTL  = TTL(24 * time.Hour)
	OpenRangeTTL = TTL(time.Hour)
	ScreenTTL    = TTL(time.Hour)
)

// HistoryPolicy returns the policy for a history range ending at end.
// A closed range in the past keeps same-day semantics; a range reaching
// today still gains bars during the session, so it expires after an hour.
func HistoryPolicy(end, now time.Time, loc *time.Location) Policy {
	if loc == nil {
		loc = time.Local
	}
	ey, em, ed := end.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	endDay := time.Date(ey, em, ed, 0, 0, 0, 0, loc)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, loc)

	if !endDay.Before(today) {
		return OpenRangeTTL
	}
	return SameDay{Location: loc}
}

// FundamentalPolicy returns the same-day policy for ratio records
func FundamentalPolicy(loc *time.Location) Policy {
	return SameDay{Location: loc}
}
