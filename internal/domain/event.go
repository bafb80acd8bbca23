package domain

import "time"

// StateChangeEvent is emitted to the audit/metrics sink after every committed
// appointment transition. Emission is best-effort and never blocks a booking.
type StateChangeEvent struct {
	AppointmentID    string
	PreviousStatus   AppointmentStatus
	NewStatus        AppointmentStatus
	ResourcesTouched []string
	Timestamp        time.Time
}
