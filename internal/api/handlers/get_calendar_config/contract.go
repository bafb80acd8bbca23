package get_calendar_config

import (
	"context"

	"github.com/m04kA/PMC-SchedulingService/internal/service/calendarcfg/models"
)

type CalendarService interface {
	Get(ctx context.Context, resourceID *string) (*models.CalendarResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
