package coordinator

import (
	"context"
	"time"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
)

// AppointmentStore интерфейс персистентного хранилища приемов.
// Запись в store - это коммит операции: ошибка записи откатывает
// изменения таймлайнов.
type AppointmentStore interface {
	Create(ctx context.Context, appointment *domain.Appointment) error
	Update(ctx context.Context, appointment *domain.Appointment) error
	ListLive(ctx context.Context) ([]*domain.Appointment, error)
}

// CalendarSource источник бизнес-календарей ресурсов (read-only).
// Возвращает (nil, nil), если у ресурса нет собственного календаря -
// тогда применяется клиник-wide календарь по умолчанию.
type CalendarSource interface {
	CalendarFor(ctx context.Context, resourceID string) (*domain.BusinessCalendar, error)
}

// EventSink внешний приемник событий смены состояния (аудит/метрики).
// Доставка best-effort: ошибки логируются и не влияют на операцию.
type EventSink interface {
	Publish(ctx context.Context, event domain.StateChangeEvent) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
