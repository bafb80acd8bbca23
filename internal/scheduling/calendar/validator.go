// Package calendar валидирует предлагаемые интервалы по бизнес-календарю
// ресурса: границы длительности, рабочие часы, заблокированные диапазоны.
// Чистый предикат без побочных эффектов.
package calendar

import (
	"fmt"
	"time"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
)

// Validate проверяет интервал по календарю.
// Порядок проверок фиксирован, выигрывает первая провалившаяся -
// сообщения об отказе детерминированы:
//  1. длительность вне [MinDurationMinutes, MaxDurationMinutes];
//  2. интервал не целиком внутри рабочего окна дня недели
//     (закрытый день и интервал через полночь отклоняются здесь же);
//  3. пересечение с заблокированным диапазоном.
func Validate(cal *domain.BusinessCalendar, iv domain.Interval) error {
	if err := validateDuration(cal, iv); err != nil {
		return err
	}
	if err := validateWorkingHours(cal, iv); err != nil {
		return err
	}
	return validateBlocked(cal, iv)
}

// validateDuration сравнивает длительности без усечения до минут:
// интервал с секундной частью сверх максимума должен отклоняться.
func validateDuration(cal *domain.BusinessCalendar, iv domain.Interval) error {
	duration := iv.Duration()

	if cal.MinDurationMinutes > 0 && duration < time.Duration(cal.MinDurationMinutes)*time.Minute {
		return fmt.Errorf("%w: %s is shorter than minimum %d minutes",
			ErrInvalidDuration, duration, cal.MinDurationMinutes)
	}
	if cal.MaxDurationMinutes > 0 && duration > time.Duration(cal.MaxDurationMinutes)*time.Minute {
		return fmt.Errorf("%w: %s is longer than maximum %d minutes",
			ErrInvalidDuration, duration, cal.MaxDurationMinutes)
	}
	return nil
}

func validateWorkingHours(cal *domain.BusinessCalendar, iv domain.Interval) error {
	y1, m1, d1 := iv.Start.Date()
	y2, m2, d2 := iv.End.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return fmt.Errorf("%w: interval crosses midnight", ErrOutsideWorkingHours)
	}

	window := cal.WorkingHours.ForWeekday(iv.Start.Weekday())
	if !window.IsOpen {
		return fmt.Errorf("%w: closed on %s", ErrOutsideWorkingHours, iv.Start.Weekday())
	}

	openMinutes, err := window.OpenTime.Minutes()
	if err != nil {
		return fmt.Errorf("%w: malformed working window %s-%s",
			ErrOutsideWorkingHours, window.OpenTime, window.CloseTime)
	}
	closeMinutes, err := window.CloseTime.Minutes()
	if err != nil {
		return fmt.Errorf("%w: malformed working window %s-%s",
			ErrOutsideWorkingHours, window.OpenTime, window.CloseTime)
	}

	// Сравниваем в секундах от полуночи: приведение границ к "HH:MM"
	// отбрасывало бы секунды и пропускало интервалы, выступающие за
	// закрытие меньше чем на минуту. Конец с долями секунды округляем
	// вверх - он строго позже своей секундной отметки.
	startSec := secondsIntoDay(iv.Start)
	endSec := secondsIntoDay(iv.End)
	if iv.End.Nanosecond() > 0 {
		endSec++
	}

	if startSec < openMinutes*60 || endSec > closeMinutes*60 {
		return fmt.Errorf("%w: [%s, %s) not within %s-%s",
			ErrOutsideWorkingHours,
			iv.Start.Format("15:04:05"), iv.End.Format("15:04:05"),
			window.OpenTime, window.CloseTime)
	}
	return nil
}

func secondsIntoDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func validateBlocked(cal *domain.BusinessCalendar, iv domain.Interval) error {
	for _, blocked := range cal.Blocked {
		if blocked.Interval.Overlaps(iv) {
			return fmt.Errorf("%w: %s", ErrBlockedSlot, blocked.Reason)
		}
	}
	return nil
}
