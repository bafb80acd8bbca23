package cancel_appointment

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/PMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/coordinator"
	"github.com/m04kA/PMC-SchedulingService/internal/service/appointments"
)

const (
	msgNotFound          = "прием не найден"
	msgInvalidTransition = "прием в текущем статусе нельзя отменить"
	msgInvalidInput      = "некорректный идентификатор приема"
	msgEngineBusy        = "сервис перегружен, повторите попытку позже"
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

// Handle DELETE /api/v1/appointments/{appointmentId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]

	err := h.service.Cancel(r.Context(), appointmentID)
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrAppointmentNotFound):
			h.logger.Warn("DELETE /appointments/{id} - Appointment not found: id=%s", appointmentID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, coordinator.ErrInvalidTransition):
			h.logger.Warn("DELETE /appointments/{id} - Invalid transition: id=%s: %v", appointmentID, err)
			handlers.RespondError(w, http.StatusConflict, msgInvalidTransition)

		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("DELETE /appointments/{id} - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, coordinator.ErrBusy):
			h.logger.Warn("DELETE /appointments/{id} - Engine busy: id=%s: %v", appointmentID, err)
			handlers.RespondServiceUnavailable(w, msgEngineBusy)

		default:
			h.logger.Error("DELETE /appointments/{id} - Failed to cancel: id=%s, error=%v", appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("DELETE /appointments/{id} - Appointment cancelled: id=%s", appointmentID)
	w.WriteHeader(http.StatusNoContent)
}
