package calendarcfg

import (
	"context"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
)

// CalendarRepository интерфейс репозитория бизнес-календарей
type CalendarRepository interface {
	GetByResource(ctx context.Context, resourceID *string) (*domain.BusinessCalendar, error)
	Replace(ctx context.Context, resourceID *string, cal *domain.BusinessCalendar) error
	Delete(ctx context.Context, resourceID *string) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
