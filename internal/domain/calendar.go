package domain

import (
	"time"

	"github.com/m04kA/PMC-SchedulingService/pkg/types"
)

// DayWindow is a single weekday's working window.
type DayWindow struct {
	IsOpen    bool
	OpenTime  types.TimeString
	CloseTime types.TimeString
}

// WeekSchedule holds working windows for every weekday.
type WeekSchedule struct {
	Monday    DayWindow
	Tuesday   DayWindow
	Wednesday DayWindow
	Thursday  DayWindow
	Friday    DayWindow
	Saturday  DayWindow
	Sunday    DayWindow
}

// ForWeekday returns the window configured for the given weekday.
func (w WeekSchedule) ForWeekday(day time.Weekday) DayWindow {
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	default:
		return DayWindow{IsOpen: false}
	}
}

// BlockedSlot is a configured unavailable range (holiday, break, maintenance).
type BlockedSlot struct {
	Interval Interval
	Reason   string
}

// BusinessCalendar is the read-only availability configuration the engine
// validates proposed intervals against. It is owned by configuration
// management; the booking flow never mutates it.
type BusinessCalendar struct {
	WorkingHours       WeekSchedule
	Blocked            []BlockedSlot
	MinDurationMinutes int
	MaxDurationMinutes int
}

// DefaultBusinessCalendar returns the clinic-wide fallback used when a
// resource has no calendar of its own.
func DefaultBusinessCalendar() *BusinessCalendar {
	open := DayWindow{IsOpen: true, OpenTime: DefaultOpenTime, CloseTime: DefaultCloseTime}
	return &BusinessCalendar{
		WorkingHours: WeekSchedule{
			Monday:    open,
			Tuesday:   open,
			Wednesday: open,
			Thursday:  open,
			Friday:    open,
			Saturday:  DayWindow{IsOpen: false},
			Sunday:    DayWindow{IsOpen: false},
		},
		MinDurationMinutes: DefaultMinDurationMinutes,
		MaxDurationMinutes: DefaultMaxDurationMinutes,
	}
}
