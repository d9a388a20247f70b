package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/shared"
)

// Default clinic schedule
const (
	DefaultOpenTime    = "07:30"
	DefaultCloseTime   = "19:30"
	DefaultSlotMinutes = 30
)

// WorkingHours describes when appointments can be booked.
// Times are minutes since midnight; both bounds are bookable.
type WorkingHours struct {
	OpenMinute  int
	CloseMinute int
	SlotMinutes int
}

// DefaultWorkingHours returns the 07:30-19:30 schedule with 30 minute slots
func DefaultWorkingHours() WorkingHours {
	wh, _ := NewWorkingHours(DefaultOpenTime, DefaultCloseTime, DefaultSlotMinutes)
	return wh
}

// NewWorkingHours builds a schedule from "HH:MM" bounds
func NewWorkingHours(open, close string, slotMinutes int) (WorkingHours, error) {
	o, err := ParseClock(open)
	if err != nil {
		return WorkingHours{}, err
	}
	c, err := ParseClock(close)
	if err != nil {
		return WorkingHours{}, err
	}
	if c <= o {
		return WorkingHours{}, shared.ErrValidationFailed.WithMessage("closing time must be after opening time")
	}
	if slotMinutes <= 0 {
		return WorkingHours{}, shared.ErrValidationFailed.WithMessage("slot length must be positive")
	}
	return WorkingHours{OpenMinute: o, CloseMinute: c, SlotMinutes: slotMinutes}, nil
}

// ParseClock parses "HH:MM" (or "HH:MM:SS", seconds ignored) into minutes since midnight
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, shared.ErrValidationFailed.WithMessagef("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, shared.ErrValidationFailed.WithMessagef("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, shared.ErrValidationFailed.WithMessagef("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock parses and re-formats a clock string
func NormalizeClock(s string) (string, error) {
	m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(m), nil
}

// Contains reports whether the clock minute falls inside working hours
func (w WorkingHours) Contains(minute int) bool {
	return minute >= w.OpenMinute && minute <= w.CloseMinute
}

// Slots returns every slot start between open and close inclusive
func (w WorkingHours) Slots() []string {
	slots := make([]string, 0, (w.CloseMinute-w.OpenMinute)/w.SlotMinutes+1)
	for m := w.OpenMinute; m <= w.CloseMinute; m += w.SlotMinutes {
		slots = append(slots, FormatClock(m))
	}
	return slots
}

// At combines a calendar date and a clock into a local timestamp in loc
func At(date time.Time, minute int, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, minute/60, minute%60, 0, 0, loc)
}

// ValidateBooking checks the working-hours and future-time rules for a pending appointment.
// The date is a calendar date; now supplies both the current instant and the clinic's location.
func (w WorkingHours) ValidateBooking(date time.Time, clock string, now time.Time) (string, error) {
	minute, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	if !w.Contains(minute) {
		return "", shared.ErrValidationFailed.WithMessagef(
			"appointment time must be between %s and %s", FormatClock(w.OpenMinute), FormatClock(w.CloseMinute))
	}
	if !At(date, minute, now.Location()).After(now) {
		return "", shared.ErrValidationFailed.WithMessage("appointment must be scheduled in the future")
	}
	return FormatClock(minute), nil
}
