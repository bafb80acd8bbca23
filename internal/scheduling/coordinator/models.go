package coordinator

import "time"

// CreateRequest запрос на создание приема
type CreateRequest struct {
	PatientID       string
	ProfessionalIDs []string
	RoomID          *string
	Start           time.Time
	End             time.Time
}

// RescheduleRequest запрос на перенос приема.
//
// ProfessionalIDs и RoomID - опциональные замены: nil означает
// "оставить как есть" (перенос только по времени). ClearRoom=true
// освобождает кабинет. Перенос не меняет статус приема.
type RescheduleRequest struct {
	AppointmentID   string
	Start           time.Time
	End             time.Time
	ProfessionalIDs []string
	RoomID          *string
	ClearRoom       bool
	ExpectedVersion int64
}
