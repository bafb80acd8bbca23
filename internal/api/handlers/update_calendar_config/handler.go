package update_calendar_config

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/PMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/PMC-SchedulingService/internal/service/calendarcfg"
	"github.com/m04kA/PMC-SchedulingService/internal/service/calendarcfg/models"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidCalendar    = "некорректная конфигурация календаря"
)

type Handler struct {
	service CalendarService
	logger  Logger
}

func NewHandler(service CalendarService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle PUT /api/v1/calendars/{resourceId} и PUT /api/v1/calendars/default
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var resourceID *string
	label := "default"
	if raw, ok := mux.Vars(r)["resourceId"]; ok && raw != "" {
		resourceID = &raw
		label = raw
	}

	var req models.UpdateCalendarRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /calendars - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	cal, err := h.service.Update(r.Context(), resourceID, &req)
	if err != nil {
		switch {
		case errors.Is(err, calendarcfg.ErrInvalidInput):
			h.logger.Warn("PUT /calendars - Invalid calendar: resource=%s: %v", label, err)
			handlers.RespondBadRequest(w, msgInvalidCalendar)

		default:
			h.logger.Error("PUT /calendars - Failed to update calendar: resource=%s, error=%v", label, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PUT /calendars - Calendar updated: resource=%s, source=%s", label, cal.Source)
	handlers.RespondJSON(w, http.StatusOK, cal)
}
