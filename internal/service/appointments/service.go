package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	appointmentRepo "github.com/m04kA/PMC-SchedulingService/internal/infra/storage/appointment"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/coordinator"
	"github.com/m04kA/PMC-SchedulingService/internal/service/appointments/models"
)

// Service сервис для работы с приемами. Мутации делегирует движку
// расписания, выборки читает из репозитория.
type Service struct {
	engine SchedulingEngine
	repo   AppointmentRepository
	logger Logger
}

// NewService создает новый экземпляр сервиса приемов
func NewService(engine SchedulingEngine, repo AppointmentRepository, logger Logger) *Service {
	return &Service{
		engine: engine,
		repo:   repo,
		logger: logger,
	}
}

// Create создает новый прием
func (s *Service) Create(ctx context.Context, req *models.CreateAppointmentRequest) (*models.AppointmentResponse, error) {
	engineReq, err := req.ToEngineRequest()
	if err != nil {
		s.logger.Warn("Create: malformed request: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	appt, err := s.engine.Create(ctx, engineReq)
	if err != nil {
		// Типизированные отказы движка (конфликт, календарь, занятость)
		// уходят наверх без переупаковки - хендлер различает их по errors.Is
		return nil, err
	}

	return models.FromDomainAppointment(appt), nil
}

// Reschedule переносит прием на новый интервал
func (s *Service) Reschedule(ctx context.Context, appointmentID string, req *models.RescheduleAppointmentRequest) (*models.AppointmentResponse, error) {
	engineReq, err := req.ToEngineRequest(appointmentID)
	if err != nil {
		s.logger.Warn("Reschedule: malformed request for id=%s: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	appt, err := s.engine.Reschedule(ctx, engineReq)
	if err != nil {
		return nil, err
	}

	return models.FromDomainAppointment(appt), nil
}

// Cancel отменяет прием
func (s *Service) Cancel(ctx context.Context, appointmentID string) error {
	if appointmentID == "" {
		return fmt.Errorf("%w: appointment id is required", ErrInvalidInput)
	}
	return s.engine.Cancel(ctx, appointmentID)
}

// UpdateStatus переводит прием в новый статус
func (s *Service) UpdateStatus(ctx context.Context, appointmentID string, req *models.UpdateStatusRequest) (*models.AppointmentResponse, error) {
	status, err := models.ToDomainStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status %q for id=%s", req.Status, appointmentID)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	appt, err := s.engine.UpdateStatus(ctx, appointmentID, status)
	if err != nil {
		return nil, err
	}

	return models.FromDomainAppointment(appt), nil
}

// GetByID получает прием по ID. Читает из движка - он является
// источником истины для живых приемов; отмененные до последнего
// рестарта добирает из репозитория.
func (s *Service) GetByID(ctx context.Context, appointmentID string) (*models.AppointmentResponse, error) {
	appt, err := s.engine.Get(ctx, appointmentID)
	if err == nil {
		return models.FromDomainAppointment(appt), nil
	}
	if !errors.Is(err, coordinator.ErrAppointmentNotFound) {
		return nil, err
	}

	stored, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("GetByID: repository error for id=%s: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainAppointment(stored), nil
}

// GetProfessionalAppointments получает приемы специалиста с фильтрацией
// по периоду и статусу
func (s *Service) GetProfessionalAppointments(ctx context.Context, req *models.GetProfessionalAppointmentsRequest) (*models.AppointmentListResponse, error) {
	if req.ProfessionalID == "" {
		return nil, fmt.Errorf("%w: professional id is required", ErrInvalidInput)
	}

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetProfessionalAppointments: malformed filter for professional=%s: %v", req.ProfessionalID, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	appointments, err := s.repo.ListByProfessional(ctx, req.ProfessionalID, filter)
	if err != nil {
		s.logger.Error("GetProfessionalAppointments: repository error for professional=%s: %v", req.ProfessionalID, err)
		return nil, fmt.Errorf("%w: GetProfessionalAppointments - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainAppointments(appointments), nil
}

// GetAvailableSlots получает свободные слоты специалиста на дату
func (s *Service) GetAvailableSlots(ctx context.Context, professionalID string, date string, durationMinutes int) (*models.SlotListResponse, error) {
	day, err := time.Parse(domain.DateFormat, date)
	if err != nil {
		s.logger.Warn("GetAvailableSlots: invalid date %q for professional=%s", date, professionalID)
		return nil, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidInput, date)
	}

	if durationMinutes <= 0 {
		durationMinutes = domain.DefaultSlotStepMinutes
	}

	slots, err := s.engine.AvailableSlots(ctx, professionalID, day, durationMinutes)
	if err != nil {
		return nil, err
	}

	return models.FromDomainSlots(professionalID, day, durationMinutes, slots), nil
}
