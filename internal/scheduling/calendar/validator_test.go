package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
)

// monday 2026-03-02
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, min int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func mustInterval(t *testing.T, start, end time.Time) domain.Interval {
	t.Helper()
	iv, err := domain.NewInterval(start, end)
	require.NoError(t, err)
	return iv
}

func testCalendar() *domain.BusinessCalendar {
	cal := domain.DefaultBusinessCalendar() // пн-пт 09:00-18:00, 15-240 минут
	lunch := mustIntervalRaw(at(monday, 13, 0), at(monday, 14, 0))
	cal.Blocked = []domain.BlockedSlot{{Interval: lunch, Reason: "lunch break"}}
	return cal
}

func mustIntervalRaw(start, end time.Time) domain.Interval {
	iv, _ := domain.NewInterval(start, end)
	return iv
}

func TestValidateAccepts(t *testing.T) {
	cal := testCalendar()

	err := Validate(cal, mustInterval(t, at(monday, 10, 0), at(monday, 11, 0)))
	assert.NoError(t, err)

	// Интервал встык к границам окна допустим
	err = Validate(cal, mustInterval(t, at(monday, 9, 0), at(monday, 10, 0)))
	assert.NoError(t, err)
	err = Validate(cal, mustInterval(t, at(monday, 17, 0), at(monday, 18, 0)))
	assert.NoError(t, err)
}

func TestValidateDurationBounds(t *testing.T) {
	cal := testCalendar()

	err := Validate(cal, mustInterval(t, at(monday, 10, 0), at(monday, 10, 10)))
	require.ErrorIs(t, err, ErrInvalidDuration)

	err = Validate(cal, mustInterval(t, at(monday, 9, 0), at(monday, 13, 1)))
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestValidateOutsideWorkingHours(t *testing.T) {
	cal := testCalendar()

	// Сценарий из контрактных тестов: [08:00, 08:30) при окне 09:00-18:00
	err := Validate(cal, mustInterval(t, at(monday, 8, 0), at(monday, 8, 30)))
	require.ErrorIs(t, err, ErrOutsideWorkingHours)

	// Частично за границей окна
	err = Validate(cal, mustInterval(t, at(monday, 17, 30), at(monday, 18, 30)))
	require.ErrorIs(t, err, ErrOutsideWorkingHours)

	// Закрытый день (суббота)
	saturday := monday.AddDate(0, 0, 5)
	err = Validate(cal, mustInterval(t, at(saturday, 10, 0), at(saturday, 11, 0)))
	require.ErrorIs(t, err, ErrOutsideWorkingHours)

	// Интервал через полночь
	err = Validate(cal, mustInterval(t, at(monday, 23, 30), at(monday.AddDate(0, 0, 1), 0, 30)))
	require.ErrorIs(t, err, ErrOutsideWorkingHours)
}

// Секундная точность: усечение границ до минут не должно пропускать
// интервалы, выступающие за пределы окна или лимита длительности.
func TestValidateSubMinuteBoundaries(t *testing.T) {
	cal := testCalendar()

	// Конец на 30 секунд позже закрытия
	err := Validate(cal, mustInterval(t, at(monday, 17, 30), at(monday, 18, 0).Add(30*time.Second)))
	require.ErrorIs(t, err, ErrOutsideWorkingHours)

	// Конец на долю секунды позже закрытия
	err = Validate(cal, mustInterval(t, at(monday, 17, 0), at(monday, 18, 0).Add(time.Nanosecond)))
	require.ErrorIs(t, err, ErrOutsideWorkingHours)

	// Начало на 30 секунд раньше открытия
	err = Validate(cal, mustInterval(t, at(monday, 9, 0).Add(-30*time.Second), at(monday, 10, 0)))
	require.ErrorIs(t, err, ErrOutsideWorkingHours)

	// Длительность 240 минут 30 секунд при максимуме 240
	err = Validate(cal, mustInterval(t, at(monday, 9, 0), at(monday, 13, 0).Add(30*time.Second)))
	require.ErrorIs(t, err, ErrInvalidDuration)

	// Секунды внутри окна сами по себе не мешают
	err = Validate(cal, mustInterval(t, at(monday, 10, 0).Add(15*time.Second), at(monday, 11, 0).Add(15*time.Second)))
	assert.NoError(t, err)
}

func TestValidateBlockedSlot(t *testing.T) {
	cal := testCalendar()

	err := Validate(cal, mustInterval(t, at(monday, 12, 30), at(monday, 13, 30)))
	require.ErrorIs(t, err, ErrBlockedSlot)

	// Встык к блокировке - допустимо
	err = Validate(cal, mustInterval(t, at(monday, 12, 0), at(monday, 13, 0)))
	assert.NoError(t, err)
	err = Validate(cal, mustInterval(t, at(monday, 14, 0), at(monday, 15, 0)))
	assert.NoError(t, err)
}

// Первая провалившаяся проверка выигрывает: интервал и слишком короткий,
// и вне рабочих часов - должен прийти отказ по длительности.
func TestValidateCheckOrder(t *testing.T) {
	cal := testCalendar()

	err := Validate(cal, mustInterval(t, at(monday, 8, 0), at(monday, 8, 10)))
	require.ErrorIs(t, err, ErrInvalidDuration)

	// Вне рабочих часов и поверх блокировки быть не может, но рабочие часы
	// проверяются раньше блокировок: вечерний интервал поверх вечерней блокировки
	cal.Blocked = append(cal.Blocked, domain.BlockedSlot{
		Interval: mustIntervalRaw(at(monday, 18, 0), at(monday, 20, 0)),
		Reason:   "maintenance",
	})
	err = Validate(cal, mustInterval(t, at(monday, 18, 30), at(monday, 19, 30)))
	require.ErrorIs(t, err, ErrOutsideWorkingHours)
}
