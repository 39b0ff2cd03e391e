package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/cleanshift/models"
)

// DefaultGracePeriod is how long after shift start a worker has to acknowledge arrival.
const DefaultGracePeriod = 5 * time.Minute

const dateLayout = "2006-01-02"

// shiftStartHour is the canonical wall-clock start of each shift.
var shiftStartHour = map[models.Shift]int{
	models.ShiftMorning:   8,
	models.ShiftAfternoon: 13,
	models.ShiftEvening:   18,
}

// ShiftCalendar maps a calendar day and shift to wall-clock instants in Location.
type ShiftCalendar struct {
	Location *time.Location
}

func NewShiftCalendar(loc *time.Location) ShiftCalendar {
	if loc == nil {
		loc = time.Local
	}
	return ShiftCalendar{Location: loc}
}

// StartInstant returns the start of shift on date's calendar day. ok is false for
// a shift outside the known kinds.
func (sc ShiftCalendar) StartInstant(date time.Time, shift models.Shift) (start time.Time, ok bool) {
	hour, ok := shiftStartHour[shift]
	if !ok {
		return time.Time{}, false
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, sc.location()), true
}

// GraceDeadline is StartInstant plus grace.
func (sc ShiftCalendar) GraceDeadline(date time.Time, shift models.Shift, grace time.Duration) (time.Time, bool) {
	start, ok := sc.StartInstant(date, shift)
	if !ok {
		return time.Time{}, false
	}
	return start.Add(grace), true
}

func (sc ShiftCalendar) location() *time.Location {
	if sc.Location == nil {
		return time.Local
	}
	return sc.Location
}

// ParseShift accepts the shift names case-insensitively.
func ParseShift(s string) (models.Shift, error) {
	shift := models.Shift(strings.ToLower(strings.TrimSpace(s)))
	if !shift.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownShift, s)
	}
	return shift, nil
}

// NormalizeDate keeps only the calendar day of t, as midnight UTC. Task dates are
// stored in this form so equal days compare and index equal.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
