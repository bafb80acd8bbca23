package domain

import (
	"sort"
	"time"
)

// AppointmentStatus represents the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
)

// statusTransitions defines the legal status edges. Reschedule is not a
// transition: it changes the interval and bumps the version, never the status.
var statusTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether the status machine allows s -> next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether the value is one of the known statuses.
func (s AppointmentStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Appointment is the booking unit: one patient, one or more professionals,
// optionally a room, over a half-open interval.
type Appointment struct {
	ID              string
	PatientID       string
	ProfessionalIDs []string
	RoomID          *string
	Interval        Interval
	Status          AppointmentStatus
	// Version increments on every committed mutation and backs optimistic
	// concurrency on reschedule.
	Version int64

	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Resources returns the full set of resource ids the appointment occupies
// (professionals plus room, if any), sorted and deduplicated. The sorted
// order doubles as the global lock-acquisition order.
func (a *Appointment) Resources() []string {
	seen := make(map[string]struct{}, len(a.ProfessionalIDs)+1)
	resources := make([]string, 0, len(a.ProfessionalIDs)+1)
	for _, id := range a.ProfessionalIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		resources = append(resources, id)
	}
	if a.RoomID != nil {
		if _, ok := seen[*a.RoomID]; !ok {
			resources = append(resources, *a.RoomID)
		}
	}
	sort.Strings(resources)
	return resources
}

// IsActive reports whether the appointment still occupies its timeline slots.
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCancelled
}

// CanBeCancelled reports whether cancellation is a legal transition.
func (a *Appointment) CanBeCancelled() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// CanBeRescheduled reports whether the appointment may still be moved.
func (a *Appointment) CanBeRescheduled() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// AppointmentsFilter narrows appointment listings. Nil fields are ignored.
// From and To select appointments whose interval overlaps [From, To).
type AppointmentsFilter struct {
	From   *time.Time
	To     *time.Time
	Status *AppointmentStatus
}

// Clone returns a deep copy so committed records are never mutated in place.
func (a *Appointment) Clone() *Appointment {
	clone := *a
	clone.ProfessionalIDs = append([]string(nil), a.ProfessionalIDs...)
	if a.RoomID != nil {
		roomID := *a.RoomID
		clone.RoomID = &roomID
	}
	if a.CancelledAt != nil {
		cancelledAt := *a.CancelledAt
		clone.CancelledAt = &cancelledAt
	}
	return &clone
}
