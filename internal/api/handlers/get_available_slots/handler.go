package get_available_slots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/PMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/coordinator"
	"github.com/m04kA/PMC-SchedulingService/internal/service/appointments"
)

const (
	msgMissingDate     = "отсутствует обязательный параметр date"
	msgInvalidDuration = "некорректное значение durationMinutes"
	msgInvalidQuery    = "некорректные параметры запроса"
	msgEngineBusy      = "сервис перегружен, повторите попытку позже"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/professionals/{professionalId}/available-slots?date=YYYY-MM-DD&durationMinutes=30
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	professionalID := mux.Vars(r)["professionalId"]
	query := r.URL.Query()

	date := query.Get("date")
	if date == "" {
		h.logger.Warn("GET /professionals/{id}/available-slots - Missing date: professional=%s", professionalID)
		handlers.RespondBadRequest(w, msgMissingDate)
		return
	}

	durationMinutes := 0
	if raw := query.Get("durationMinutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.logger.Warn("GET /professionals/{id}/available-slots - Invalid durationMinutes %q: professional=%s",
				raw, professionalID)
			handlers.RespondBadRequest(w, msgInvalidDuration)
			return
		}
		durationMinutes = parsed
	}

	slots, err := h.service.GetAvailableSlots(r.Context(), professionalID, date, durationMinutes)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrInvalidInput), errors.Is(err, coordinator.ErrInvalidInput):
			h.logger.Warn("GET /professionals/{id}/available-slots - Invalid query: professional=%s: %v",
				professionalID, err)
			handlers.RespondBadRequest(w, msgInvalidQuery)

		case errors.Is(err, coordinator.ErrBusy):
			h.logger.Warn("GET /professionals/{id}/available-slots - Engine busy: professional=%s: %v",
				professionalID, err)
			handlers.RespondServiceUnavailable(w, msgEngineBusy)

		default:
			h.logger.Error("GET /professionals/{id}/available-slots - Failed: professional=%s, error=%v",
				professionalID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, slots)
}
