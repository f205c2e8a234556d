// Package metricdate resolves calendar days in the configured metrics location.
package metricdate

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/smallbiznis/pulse/internal/errkind"
)

// MaxRangeDays bounds history reads.
const MaxRangeDays = 366

// Parse reads a YYYY-MM-DD date.
func Parse(value string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(value))
	if err != nil || !d.IsValid() {
		return civil.Date{}, errkind.Invalid(fmt.Sprintf("date %q must be YYYY-MM-DD", value))
	}
	return d, nil
}

// Today is the calendar day containing now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(now.In(location(loc)))
}

// Yesterday is the last complete calendar day before now in loc.
func Yesterday(now time.Time, loc *time.Location) civil.Date {
	return Today(now, loc).AddDays(-1)
}

// Bounds returns [start of d, start of d+1) in loc, as UTC instants.
func Bounds(d civil.Date, loc *time.Location) (time.Time, time.Time) {
	loc = location(loc)
	return d.In(loc).UTC(), d.AddDays(1).In(loc).UTC()
}

// RequireCompleted rejects days that have not ended yet.
func RequireCompleted(d civil.Date, now time.Time, loc *time.Location) error {
	if !d.IsValid() {
		return errkind.Invalid("date is not a valid calendar day")
	}
	if !d.Before(Today(now, loc)) {
		return errkind.Invalid(fmt.Sprintf("date %s is not complete yet", d))
	}
	return nil
}

// RequireRange validates an inclusive range capped at MaxRangeDays.
func RequireRange(from, to civil.Date) error {
	if to.Before(from) {
		return errkind.Invalid("from must not be after to")
	}
	if to.DaysSince(from)+1 > MaxRangeDays {
		return errkind.Invalid(fmt.Sprintf("range exceeds %d days", MaxRangeDays))
	}
	return nil
}

// Resolve picks the explicit date when provided, otherwise yesterday.
func Resolve(explicit *civil.Date, now time.Time, loc *time.Location) civil.Date {
	if explicit != nil {
		return *explicit
	}
	return Yesterday(now, loc)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
