package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/calendar"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/timeline"
	"github.com/m04kA/PMC-SchedulingService/pkg/ptr"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func mustInterval(t *testing.T, start, end time.Time) domain.Interval {
	t.Helper()
	iv, err := domain.NewInterval(start, end)
	require.NoError(t, err)
	return iv
}

type timelineSet map[string]*timeline.Timeline

func (s timelineSet) view(resourceID string) TimelineView {
	tl, ok := s[resourceID]
	if !ok {
		tl = timeline.New(resourceID)
		s[resourceID] = tl
	}
	return tl
}

func candidate(t *testing.T, professionals []string, roomID *string, start, end time.Time) *domain.Appointment {
	t.Helper()
	return &domain.Appointment{
		ID:              "cand",
		PatientID:       "patient-1",
		ProfessionalIDs: professionals,
		RoomID:          roomID,
		Interval:        mustInterval(t, start, end),
		Status:          domain.StatusScheduled,
	}
}

// Сценарий из контрактных тестов: у специалиста P прием A1 [10:00,11:00) в
// кабинете R1. Проверяем все три комбинации заявок на [10:30,11:30).
func TestResolveContractScenario(t *testing.T) {
	timelines := timelineSet{}
	a1 := mustInterval(t, at(10, 0), at(11, 0))
	require.NoError(t, timelines.view("prof-P").(*timeline.Timeline).Insert(a1, "a1"))
	require.NoError(t, timelines.view("room-R1").(*timeline.Timeline).Insert(a1, "a1"))

	calendars := map[string]*domain.BusinessCalendar{}

	// P занят: Conflict{Professional}
	err := Resolve(candidate(t, []string{"prof-P"}, ptr.Ptr("room-R2"), at(10, 30), at(11, 30)), calendars, timelines.view)
	var conflict *Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictProfessional, conflict.Kind)
	assert.Equal(t, "prof-P", conflict.ResourceID)
	assert.Equal(t, "a1", conflict.WithAppointmentID)

	// R1 занят: Conflict{Room}
	err = Resolve(candidate(t, []string{"prof-Q"}, ptr.Ptr("room-R1"), at(10, 30), at(11, 30)), calendars, timelines.view)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictRoom, conflict.Kind)
	assert.Equal(t, "room-R1", conflict.ResourceID)

	// Q + R2 свободны: approved
	err = Resolve(candidate(t, []string{"prof-Q"}, ptr.Ptr("room-R2"), at(10, 30), at(11, 30)), calendars, timelines.view)
	assert.NoError(t, err)
}

// При одновременном конфликте специалиста и кабинета сообщаем про
// специалиста: фиксированный порядок проверки, специалисты раньше кабинета.
func TestResolveTieBreakProfessionalBeforeRoom(t *testing.T) {
	timelines := timelineSet{}
	busy := mustInterval(t, at(10, 0), at(11, 0))
	require.NoError(t, timelines.view("prof-P").(*timeline.Timeline).Insert(busy, "a1"))
	require.NoError(t, timelines.view("room-R1").(*timeline.Timeline).Insert(busy, "a1"))

	err := Resolve(candidate(t, []string{"prof-P"}, ptr.Ptr("room-R1"), at(10, 30), at(11, 30)), nil, timelines.view)

	var conflict *Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictProfessional, conflict.Kind)
	require.ErrorIs(t, err, ErrResourceBusy)
}

// Нарушение календаря обнаруживается раньше проверки занятости и несет id
// ресурса, календарь которого нарушен.
func TestResolveCalendarShortCircuits(t *testing.T) {
	timelines := timelineSet{}

	// [08:00,08:30) при окне по умолчанию 09:00-18:00
	err := Resolve(candidate(t, []string{"prof-P"}, nil, at(8, 0), at(8, 30)), nil, timelines.view)

	var violation *CalendarViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "prof-P", violation.ResourceID)
	require.ErrorIs(t, err, calendar.ErrOutsideWorkingHours)
}

// Несколько специалистов: проверяются в заявленном порядке
func TestResolveMultipleProfessionals(t *testing.T) {
	timelines := timelineSet{}
	busy := mustInterval(t, at(10, 0), at(11, 0))
	require.NoError(t, timelines.view("prof-B").(*timeline.Timeline).Insert(busy, "a1"))

	err := Resolve(candidate(t, []string{"prof-A", "prof-B"}, nil, at(10, 0), at(11, 0)), nil, timelines.view)

	var conflict *Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "prof-B", conflict.ResourceID)

	err = Resolve(candidate(t, []string{"prof-A", "prof-C"}, nil, at(10, 0), at(11, 0)), nil, timelines.view)
	assert.NoError(t, err)
}
