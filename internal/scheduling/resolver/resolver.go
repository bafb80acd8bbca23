// Package resolver принимает или отклоняет кандидата на бронирование,
// сводя бизнес-календарь и таймлайны затронутых ресурсов в одно решение
// с точной причиной отказа.
package resolver

import (
	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/calendar"
)

// TimelineView доступ на чтение к таймлайну одного ресурса.
// Координатор передает таймлайны уже под взятыми блокировками.
type TimelineView interface {
	Conflicting(iv domain.Interval) (string, bool)
}

// Resolve проверяет кандидата и возвращает nil (approved) либо типизированный
// отказ. Порядок проверок фиксирован и определяет tie-break при нескольких
// одновременных конфликтах:
//  1. бизнес-календарь каждого ресурса (специалисты в заявленном порядке, затем кабинет);
//  2. таймлайны специалистов;
//  3. таймлайн кабинета.
//
// Порядок детерминирован для тестируемости, это не бизнес-приоритет.
func Resolve(
	candidate *domain.Appointment,
	calendars map[string]*domain.BusinessCalendar,
	timelineFor func(resourceID string) TimelineView,
) error {
	for _, resourceID := range evaluationOrder(candidate) {
		cal := calendars[resourceID]
		if cal == nil {
			cal = domain.DefaultBusinessCalendar()
		}
		if err := calendar.Validate(cal, candidate.Interval); err != nil {
			return &CalendarViolation{ResourceID: resourceID, Reason: err}
		}
	}

	for _, professionalID := range candidate.ProfessionalIDs {
		if withID, busy := timelineFor(professionalID).Conflicting(candidate.Interval); busy {
			return &Conflict{
				Kind:              domain.ConflictProfessional,
				ResourceID:        professionalID,
				WithAppointmentID: withID,
			}
		}
	}

	if candidate.RoomID != nil {
		if withID, busy := timelineFor(*candidate.RoomID).Conflicting(candidate.Interval); busy {
			return &Conflict{
				Kind:              domain.ConflictRoom,
				ResourceID:        *candidate.RoomID,
				WithAppointmentID: withID,
			}
		}
	}

	return nil
}

// evaluationOrder возвращает ресурсы кандидата в порядке проверки:
// специалисты как заявлены, кабинет последним
func evaluationOrder(candidate *domain.Appointment) []string {
	order := make([]string, 0, len(candidate.ProfessionalIDs)+1)
	order = append(order, candidate.ProfessionalIDs...)
	if candidate.RoomID != nil {
		order = append(order, *candidate.RoomID)
	}
	return order
}
