package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/calendar"
)

// AvailableSlots возвращает свободные слоты специалиста на указанную дату:
// сетка от начала рабочего окна с шагом durationMinutes, из которой
// вычтены занятые интервалы таймлайна и заблокированные диапазоны.
//
// Берет блокировку ресурса на время обхода, чтобы снимок был согласован
// с конкурентными бронированиями.
func (c *Coordinator) AvailableSlots(ctx context.Context, professionalID string, date time.Time, durationMinutes int) ([]domain.Interval, error) {
	if professionalID == "" {
		return nil, fmt.Errorf("%w: professionalId is required", ErrInvalidInput)
	}
	if durationMinutes <= 0 {
		durationMinutes = domain.DefaultSlotStepMinutes
	}

	cal, err := c.calendars.CalendarFor(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("%w: load calendar for resource=%s: %v", ErrInternal, professionalID, err)
	}
	if cal == nil {
		cal = domain.DefaultBusinessCalendar()
	}

	window := cal.WorkingHours.ForWeekday(date.Weekday())
	if !window.IsOpen {
		return []domain.Interval{}, nil
	}

	openMinutes, err := window.OpenTime.Minutes()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed open time %q: %v", ErrInternal, window.OpenTime, err)
	}
	closeMinutes, err := window.CloseTime.Minutes()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed close time %q: %v", ErrInternal, window.CloseTime, err)
	}

	release, err := c.locks.acquire(ctx, []string{professionalID})
	if err != nil {
		return nil, err
	}
	defer release()

	tl := c.timelineFor(professionalID)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	slots := make([]domain.Interval, 0)
	for start := openMinutes; start+durationMinutes <= closeMinutes; start += durationMinutes {
		iv, err := domain.NewInterval(
			day.Add(time.Duration(start)*time.Minute),
			day.Add(time.Duration(start+durationMinutes)*time.Minute),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: build slot interval: %v", ErrInternal, err)
		}

		if calendar.Validate(cal, iv) != nil {
			continue
		}
		if !tl.IsFree(iv) {
			continue
		}
		slots = append(slots, iv)
	}

	return slots, nil
}
