package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/coordinator"
)

var (
	// ErrInvalidTime возвращается при некорректной метке времени
	ErrInvalidTime = errors.New("invalid timestamp")

	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid appointment status")
)

// Request модели

// CreateAppointmentRequest запрос на создание приема
type CreateAppointmentRequest struct {
	PatientID       string   `json:"patientId"`
	ProfessionalIDs []string `json:"professionalIds"`
	RoomID          *string  `json:"roomId,omitempty"`
	StartTime       string   `json:"startTime"` // RFC 3339
	EndTime         string   `json:"endTime"`   // RFC 3339
}

// ToEngineRequest конвертирует request в запрос движка расписания
func (r *CreateAppointmentRequest) ToEngineRequest() (*coordinator.CreateRequest, error) {
	start, end, err := parseRange(r.StartTime, r.EndTime)
	if err != nil {
		return nil, err
	}

	return &coordinator.CreateRequest{
		PatientID:       r.PatientID,
		ProfessionalIDs: r.ProfessionalIDs,
		RoomID:          r.RoomID,
		Start:           start,
		End:             end,
	}, nil
}

// RescheduleAppointmentRequest запрос на перенос приема.
// expectedVersion - версия, которую клиент видел последней; при
// расхождении перенос отклоняется.
type RescheduleAppointmentRequest struct {
	StartTime       string   `json:"startTime"` // RFC 3339
	EndTime         string   `json:"endTime"`   // RFC 3339
	ProfessionalIDs []string `json:"professionalIds,omitempty"`
	RoomID          *string  `json:"roomId,omitempty"`
	ClearRoom       bool     `json:"clearRoom,omitempty"`
	ExpectedVersion int64    `json:"expectedVersion"`
}

// ToEngineRequest конвертирует request в запрос движка расписания
func (r *RescheduleAppointmentRequest) ToEngineRequest(appointmentID string) (*coordinator.RescheduleRequest, error) {
	start, end, err := parseRange(r.StartTime, r.EndTime)
	if err != nil {
		return nil, err
	}

	return &coordinator.RescheduleRequest{
		AppointmentID:   appointmentID,
		Start:           start,
		End:             end,
		ProfessionalIDs: r.ProfessionalIDs,
		RoomID:          r.RoomID,
		ClearRoom:       r.ClearRoom,
		ExpectedVersion: r.ExpectedVersion,
	}, nil
}

// UpdateStatusRequest запрос на смену статуса приема
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// GetProfessionalAppointmentsRequest параметры выборки приемов специалиста
type GetProfessionalAppointmentsRequest struct {
	ProfessionalID string
	From           *string // RFC 3339, опционально
	To             *string // RFC 3339, опционально
	Status         *string // опционально
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *GetProfessionalAppointmentsRequest) ToDomainFilter() (domain.AppointmentsFilter, error) {
	var filter domain.AppointmentsFilter

	if r.From != nil {
		from, err := parseTime(*r.From)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if r.To != nil {
		to, err := parseTime(*r.To)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	if r.Status != nil {
		status, err := ToDomainStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

// Response модели

// AppointmentResponse ответ с данными приема
type AppointmentResponse struct {
	ID              string   `json:"id"`
	PatientID       string   `json:"patientId"`
	ProfessionalIDs []string `json:"professionalIds"`
	RoomID          *string  `json:"roomId,omitempty"`
	StartTime       string   `json:"startTime"` // RFC 3339
	EndTime         string   `json:"endTime"`   // RFC 3339
	Status          string   `json:"status"`
	Version         int64    `json:"version"`

	CancelledAt *string   `json:"cancelledAt,omitempty"` // RFC 3339
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AppointmentListResponse ответ со списком приемов
type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

// SlotResponse свободный слот
type SlotResponse struct {
	StartTime string `json:"startTime"` // RFC 3339
	EndTime   string `json:"endTime"`   // RFC 3339
}

// SlotListResponse ответ со списком свободных слотов
type SlotListResponse struct {
	ProfessionalID  string         `json:"professionalId"`
	Date            string         `json:"date"` // "2026-03-02"
	DurationMinutes int            `json:"durationMinutes"`
	Slots           []SlotResponse `json:"slots"`
}

// Методы конвертации

// FromDomainAppointment конвертирует domain модель в DTO
func FromDomainAppointment(a *domain.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}

	resp := &AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		ProfessionalIDs: a.ProfessionalIDs,
		RoomID:          a.RoomID,
		StartTime:       a.Interval.Start.Format(time.RFC3339),
		EndTime:         a.Interval.End.Format(time.RFC3339),
		Status:          string(a.Status),
		Version:         a.Version,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}

	if a.CancelledAt != nil {
		cancelledAt := a.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &cancelledAt
	}

	return resp
}

// FromDomainAppointments конвертирует список domain моделей в DTO
func FromDomainAppointments(appointments []*domain.Appointment) *AppointmentListResponse {
	resp := &AppointmentListResponse{
		Appointments: make([]AppointmentResponse, 0, len(appointments)),
	}
	for _, a := range appointments {
		resp.Appointments = append(resp.Appointments, *FromDomainAppointment(a))
	}
	return resp
}

// FromDomainSlots конвертирует свободные интервалы в DTO
func FromDomainSlots(professionalID string, date time.Time, durationMinutes int, slots []domain.Interval) *SlotListResponse {
	resp := &SlotListResponse{
		ProfessionalID:  professionalID,
		Date:            date.Format(domain.DateFormat),
		DurationMinutes: durationMinutes,
		Slots:           make([]SlotResponse, 0, len(slots)),
	}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, SlotResponse{
			StartTime: slot.Start.Format(time.RFC3339),
			EndTime:   slot.End.Format(time.RFC3339),
		})
	}
	return resp
}

// ToDomainStatus конвертирует строку в domain статус
func ToDomainStatus(status string) (domain.AppointmentStatus, error) {
	s := domain.AppointmentStatus(status)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s, nil
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return t, nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	startTime, err := parseTime(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endTime, err := parseTime(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startTime, endTime, nil
}
