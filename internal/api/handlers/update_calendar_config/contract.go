package update_calendar_config

import (
	"context"

	"github.com/m04kA/PMC-SchedulingService/internal/service/calendarcfg/models"
)

type CalendarService interface {
	Update(ctx context.Context, resourceID *string, req *models.UpdateCalendarRequest) (*models.CalendarResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
