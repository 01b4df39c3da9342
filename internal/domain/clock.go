package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Today returns midnight of the clock's current date in loc.
func Today(clock clockwork.Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Midnight(clock.Now(), loc)
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of calendar days from a to b. Both are
// reduced to their calendar date first so a 23h or 25h day still counts as one.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
