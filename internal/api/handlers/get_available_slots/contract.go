package get_available_slots

import (
	"context"

	"github.com/m04kA/PMC-SchedulingService/internal/service/appointments/models"
)

type AppointmentService interface {
	GetAvailableSlots(ctx context.Context, professionalID string, date string, durationMinutes int) (*models.SlotListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
