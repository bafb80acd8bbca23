package create_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/PMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/calendar"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/coordinator"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/resolver"
	"github.com/m04kA/PMC-SchedulingService/internal/service/appointments"
	"github.com/m04kA/PMC-SchedulingService/internal/service/appointments/models"
)

const (
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgInvalidInput        = "некорректные параметры приема"
	msgInvalidDuration     = "недопустимая длительность приема"
	msgOutsideWorkingHours = "интервал вне рабочих часов"
	msgBlockedSlot         = "интервал пересекается с заблокированным диапазоном"
	msgResourceBusy        = "ресурс занят в выбранном интервале"
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

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	appt, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.respondError(w, req, err)
		return
	}

	h.logger.Info("POST /appointments - Appointment created: id=%s, patient=%s", appt.ID, appt.PatientID)
	handlers.RespondJSON(w, http.StatusCreated, appt)
}

func (h *Handler) respondError(w http.ResponseWriter, req models.CreateAppointmentRequest, err error) {
	var conflict *resolver.Conflict
	var violation *resolver.CalendarViolation

	switch {
	case errors.As(err, &conflict):
		h.logger.Warn("POST /appointments - Resource conflict: patient=%s, kind=%s, resource=%s",
			req.PatientID, conflict.Kind, conflict.ResourceID)
		handlers.RespondConflict(w, msgResourceBusy, string(conflict.Kind), conflict.ResourceID)

	case errors.As(err, &violation):
		h.logger.Warn("POST /appointments - Calendar violation: patient=%s, resource=%s: %v",
			req.PatientID, violation.ResourceID, err)
		switch {
		case errors.Is(err, calendar.ErrInvalidDuration):
			handlers.RespondBadRequest(w, msgInvalidDuration)
		case errors.Is(err, calendar.ErrBlockedSlot):
			handlers.RespondError(w, http.StatusConflict, msgBlockedSlot)
		default:
			handlers.RespondError(w, http.StatusConflict, msgOutsideWorkingHours)
		}

	case errors.Is(err, appointments.ErrInvalidInput), errors.Is(err, coordinator.ErrInvalidInput):
		h.logger.Warn("POST /appointments - Invalid input: patient=%s: %v", req.PatientID, err)
		handlers.RespondBadRequest(w, msgInvalidInput)

	case errors.Is(err, coordinator.ErrBusy):
		h.logger.Warn("POST /appointments - Engine busy: patient=%s: %v", req.PatientID, err)
		handlers.RespondServiceUnavailable(w, msgEngineBusy)

	default:
		h.logger.Error("POST /appointments - Failed to create appointment: patient=%s, error=%v",
			req.PatientID, err)
		handlers.RespondInternalError(w)
	}
}
