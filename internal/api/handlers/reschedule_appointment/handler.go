package reschedule_appointment

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/PMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/calendar"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/coordinator"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/resolver"
	"github.com/m04kA/PMC-SchedulingService/internal/service/appointments"
	"github.com/m04kA/PMC-SchedulingService/internal/service/appointments/models"
)

const (
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgInvalidInput        = "некорректные параметры переноса"
	msgInvalidDuration     = "недопустимая длительность приема"
	msgOutsideWorkingHours = "интервал вне рабочих часов"
	msgBlockedSlot         = "интервал пересекается с заблокированным диапазоном"
	msgResourceBusy        = "ресурс занят в выбранном интервале"
	msgNotFound            = "прием не найден"
	msgVersionConflict     = "прием был изменен конкурентно, обновите данные"
	msgInvalidTransition   = "прием в текущем статусе нельзя перенести"
	msgEngineBusy          = "сервис перегружен, повторите попытку позже"
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

// Handle PUT /api/v1/appointments/{appointmentId}/reschedule
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]

	var req models.RescheduleAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /appointments/{id}/reschedule - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), appointmentID, &req)
	if err != nil {
		h.respondError(w, appointmentID, err)
		return
	}

	h.logger.Info("PUT /appointments/{id}/reschedule - Appointment rescheduled: id=%s, version=%d",
		appt.ID, appt.Version)
	handlers.RespondJSON(w, http.StatusOK, appt)
}

func (h *Handler) respondError(w http.ResponseWriter, appointmentID string, err error) {
	var conflict *resolver.Conflict
	var violation *resolver.CalendarViolation

	switch {
	case errors.As(err, &conflict):
		h.logger.Warn("PUT /appointments/{id}/reschedule - Resource conflict: id=%s, kind=%s, resource=%s",
			appointmentID, conflict.Kind, conflict.ResourceID)
		handlers.RespondConflict(w, msgResourceBusy, string(conflict.Kind), conflict.ResourceID)

	case errors.As(err, &violation):
		h.logger.Warn("PUT /appointments/{id}/reschedule - Calendar violation: id=%s, resource=%s: %v",
			appointmentID, violation.ResourceID, err)
		switch {
		case errors.Is(err, calendar.ErrInvalidDuration):
			handlers.RespondBadRequest(w, msgInvalidDuration)
		case errors.Is(err, calendar.ErrBlockedSlot):
			handlers.RespondError(w, http.StatusConflict, msgBlockedSlot)
		default:
			handlers.RespondError(w, http.StatusConflict, msgOutsideWorkingHours)
		}

	case errors.Is(err, coordinator.ErrAppointmentNotFound):
		h.logger.Warn("PUT /appointments/{id}/reschedule - Appointment not found: id=%s", appointmentID)
		handlers.RespondNotFound(w, msgNotFound)

	case errors.Is(err, coordinator.ErrVersionConflict):
		h.logger.Warn("PUT /appointments/{id}/reschedule - Version conflict: id=%s: %v", appointmentID, err)
		handlers.RespondError(w, http.StatusConflict, msgVersionConflict)

	case errors.Is(err, coordinator.ErrInvalidTransition):
		h.logger.Warn("PUT /appointments/{id}/reschedule - Invalid transition: id=%s: %v", appointmentID, err)
		handlers.RespondError(w, http.StatusConflict, msgInvalidTransition)

	case errors.Is(err, appointments.ErrInvalidInput), errors.Is(err, coordinator.ErrInvalidInput):
		h.logger.Warn("PUT /appointments/{id}/reschedule - Invalid input: id=%s: %v", appointmentID, err)
		handlers.RespondBadRequest(w, msgInvalidInput)

	case errors.Is(err, coordinator.ErrBusy):
		h.logger.Warn("PUT /appointments/{id}/reschedule - Engine busy: id=%s: %v", appointmentID, err)
		handlers.RespondServiceUnavailable(w, msgEngineBusy)

	default:
		h.logger.Error("PUT /appointments/{id}/reschedule - Failed to reschedule: id=%s, error=%v",
			appointmentID, err)
		handlers.RespondInternalError(w)
	}
}
