package get_calendar_config

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/PMC-SchedulingService/internal/api/handlers"
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

// Handle GET /api/v1/calendars/{resourceId} и GET /api/v1/calendars/default.
// Для default возвращается клинический календарь; для ресурса - его
// действующий календарь с учетом фолбэка.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var resourceID *string
	label := "default"
	if raw, ok := mux.Vars(r)["resourceId"]; ok && raw != "" {
		resourceID = &raw
		label = raw
	}

	cal, err := h.service.Get(r.Context(), resourceID)
	if err != nil {
		h.logger.Error("GET /calendars - Failed to get calendar: resource=%s, error=%v", label, err)
		handlers.RespondInternalError(w)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cal)
}
