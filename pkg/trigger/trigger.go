// Package trigger computes the future instants at which a reactive
// directive's output is expected to change, so an external scheduler can wake
// the system instead of polling.
package trigger

import (
	"fmt"
	"time"
)

// Trigger is a concrete future instant, or recurring instant, at which a
// reactive directive must be re-evaluated. Granularity is one minute.
type Trigger interface {
	// FiresAt reports whether the trigger fires at the given instant.
	FiresAt(t time.Time) bool
	// NextAfter returns the next firing strictly after t. ok is false when
	// the trigger never fires again.
	NextAfter(t time.Time) (next time.Time, ok bool)
	fmt.Stringer
}

// Daily fires every day at a fixed time of day.
type Daily struct {
	Hour   int
	Minute int
}

// FiresAt reports whether t is at the trigger's time of day.
func (d Daily) FiresAt(t time.Time) bool {
	return t.Hour() == d.Hour && t.Minute() == d.Minute
}

// NextAfter returns the next daily firing strictly after t.
func (d Daily) NextAfter(t time.Time) (time.Time, bool) {
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next, true
}

func (d Daily) String() string {
	return fmt.Sprintf("daily %02d:%02d", d.Hour, d.Minute)
}

// OnDate fires once, at midnight starting the given date.
type OnDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (o OnDate) instant(loc *time.Location) time.Time {
	return time.Date(o.Year, o.Month, o.Day, 0, 0, 0, 0, loc)
}

// FiresAt reports whether t is the trigger's minute.
func (o OnDate) FiresAt(t time.Time) bool {
	return o.instant(t.Location()).Equal(t.Truncate(time.Minute))
}

// NextAfter returns the firing if it is still in the future.
func (o OnDate) NextAfter(t time.Time) (time.Time, bool) {
	at := o.instant(t.Location())
	if at.After(t) {
		return at, true
	}
	return time.Time{}, false
}

func (o OnDate) String() string {
	return fmt.Sprintf("on %04d-%02d-%02d", o.Year, o.Month, o.Day)
}

// AtInstant fires once at a specific date-time.
type AtInstant struct {
	When time.Time
}

// FiresAt reports whether t is the trigger's minute.
func (a AtInstant) FiresAt(t time.Time) bool {
	return a.When.Truncate(time.Minute).Equal(t.Truncate(time.Minute))
}

// NextAfter returns the firing if it is still in the future.
func (a AtInstant) NextAfter(t time.Time) (time.Time, bool) {
	if a.When.After(t) {
		return a.When, true
	}
	return time.Time{}, false
}

func (a AtInstant) String() string {
	return "at " + a.When.Format("2006-01-02 15:04")
}
