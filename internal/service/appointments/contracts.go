package appointments

import (
	"context"
	"time"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/coordinator"
)

// SchedulingEngine интерфейс движка расписания. Все мутации приемов
// проходят через него: он владеет таймлайнами ресурсов и сериализует
// конкурентные операции.
type SchedulingEngine interface {
	Create(ctx context.Context, req *coordinator.CreateRequest) (*domain.Appointment, error)
	Reschedule(ctx context.Context, req *coordinator.RescheduleRequest) (*domain.Appointment, error)
	Cancel(ctx context.Context, appointmentID string) error
	UpdateStatus(ctx context.Context, appointmentID string, next domain.AppointmentStatus) (*domain.Appointment, error)
	Get(ctx context.Context, appointmentID string) (*domain.Appointment, error)
	AvailableSlots(ctx context.Context, professionalID string, date time.Time, durationMinutes int) ([]domain.Interval, error)
}

// AppointmentRepository интерфейс репозитория приемов (read-only выборки)
type AppointmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	ListByProfessional(ctx context.Context, professionalID string, filter domain.AppointmentsFilter) ([]*domain.Appointment, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
