package domain

import "github.com/m04kA/PMC-SchedulingService/pkg/types"

// Default business-calendar values, used when no configuration row exists.
const (
	DefaultMinDurationMinutes = 15
	DefaultMaxDurationMinutes = 240

	DefaultOpenTime  types.TimeString = "09:00"
	DefaultCloseTime types.TimeString = "18:00"

	DefaultSlotStepMinutes = 30
)

// Business validation bounds for calendar configuration updates.
const (
	MinDurationLimitMinutes = 5
	MaxDurationLimitMinutes = 480 // 8 hours
)

// Time format constants.
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// LiveStatuses are the statuses whose intervals occupy resource timelines.
var LiveStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusConfirmed,
	StatusInProgress,
	StatusCompleted,
}
