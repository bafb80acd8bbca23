package calendarcfg

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	calendarRepo "github.com/m04kA/PMC-SchedulingService/internal/infra/storage/calendar"
	"github.com/m04kA/PMC-SchedulingService/internal/service/calendarcfg/models"
)

// Service сервис управления бизнес-календарями. Одновременно реализует
// CalendarSource движка расписания: движок читает календари через
// CalendarFor при каждой проверке брони.
type Service struct {
	repo      CalendarRepository
	txManager TransactionManager
	logger    Logger
}

// NewService создает новый экземпляр сервиса календарей
func NewService(repo CalendarRepository, txManager TransactionManager, logger Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		logger:    logger,
	}
}

// Get получает действующий календарь ресурса с учетом фолбэка:
// собственный календарь -> клинический дефолт -> встроенный дефолт.
// resourceID = nil запрашивает клинический календарь.
func (s *Service) Get(ctx context.Context, resourceID *string) (*models.CalendarResponse, error) {
	if resourceID != nil {
		cal, err := s.repo.GetByResource(ctx, resourceID)
		if err == nil {
			return models.FromDomainCalendar(resourceID, models.SourceResource, cal), nil
		}
		if !errors.Is(err, calendarRepo.ErrCalendarNotFound) {
			s.logger.Error("Get: repository error for resource=%s: %v", *resourceID, err)
			return nil, fmt.Errorf("%w: Get - repository error: %v", ErrInternal, err)
		}
	}

	cal, err := s.repo.GetByResource(ctx, nil)
	if err == nil {
		return models.FromDomainCalendar(resourceID, models.SourceClinic, cal), nil
	}
	if !errors.Is(err, calendarRepo.ErrCalendarNotFound) {
		s.logger.Error("Get: repository error for clinic default: %v", err)
		return nil, fmt.Errorf("%w: Get - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainCalendar(resourceID, models.SourceBuiltIn, domain.DefaultBusinessCalendar()), nil
}

// Update перезаписывает календарь ресурса. resourceID = nil обновляет
// клинический календарь по умолчанию.
func (s *Service) Update(ctx context.Context, resourceID *string, req *models.UpdateCalendarRequest) (*models.CalendarResponse, error) {
	cal, err := req.ToDomainCalendar()
	if err != nil {
		s.logger.Warn("Update: malformed calendar for resource=%v: %v", resourceLabel(resourceID), err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// Перезапись трех таблиц должна быть атомарной
	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		return s.repo.Replace(ctx, resourceID, cal)
	})
	if err != nil {
		s.logger.Error("Update: failed to replace calendar for resource=%v: %v", resourceLabel(resourceID), err)
		return nil, fmt.Errorf("%w: Update - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Update: calendar replaced for resource=%v", resourceLabel(resourceID))

	source := models.SourceResource
	if resourceID == nil {
		source = models.SourceClinic
	}
	return models.FromDomainCalendar(resourceID, source, cal), nil
}

// Delete удаляет собственный календарь ресурса, возвращая его на
// клинический дефолт
func (s *Service) Delete(ctx context.Context, resourceID *string) error {
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, resourceID)
	})
	if err != nil {
		s.logger.Error("Delete: failed for resource=%v: %v", resourceLabel(resourceID), err)
		return fmt.Errorf("%w: Delete - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Delete: calendar removed for resource=%v", resourceLabel(resourceID))
	return nil
}

// CalendarFor реализует CalendarSource движка расписания.
// Возвращает (nil, nil), если ни собственный, ни клинический календарь
// не настроены - движок применит встроенный дефолт.
func (s *Service) CalendarFor(ctx context.Context, resourceID string) (*domain.BusinessCalendar, error) {
	cal, err := s.repo.GetByResource(ctx, &resourceID)
	if err == nil {
		return cal, nil
	}
	if !errors.Is(err, calendarRepo.ErrCalendarNotFound) {
		return nil, fmt.Errorf("%w: CalendarFor - repository error: %v", ErrInternal, err)
	}

	cal, err = s.repo.GetByResource(ctx, nil)
	if err == nil {
		return cal, nil
	}
	if !errors.Is(err, calendarRepo.ErrCalendarNotFound) {
		return nil, fmt.Errorf("%w: CalendarFor - repository error: %v", ErrInternal, err)
	}

	return nil, nil
}

func resourceLabel(resourceID *string) string {
	if resourceID == nil {
		return "<clinic-default>"
	}
	return *resourceID
}
