package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/calendar"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/resolver"
	"github.com/m04kA/PMC-SchedulingService/pkg/ptr"
)

// monday 2026-03-02, рабочий день календаря по умолчанию
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

// --- фейки коллабораторов ---

type memStore struct {
	mu           sync.Mutex
	failCreate   bool
	failUpdate   bool
	appointments map[string]*domain.Appointment
}

func newMemStore() *memStore {
	return &memStore{appointments: make(map[string]*domain.Appointment)}
}

func (s *memStore) Create(_ context.Context, appt *domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("store down")
	}
	s.appointments[appt.ID] = appt.Clone()
	return nil
}

func (s *memStore) Update(_ context.Context, appt *domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate {
		return errors.New("store down")
	}
	s.appointments[appt.ID] = appt.Clone()
	return nil
}

func (s *memStore) ListLive(_ context.Context) ([]*domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.Appointment, 0, len(s.appointments))
	for _, appt := range s.appointments {
		if appt.IsActive() {
			result = append(result, appt.Clone())
		}
	}
	return result, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appointments)
}

type fakeCalendars struct {
	byResource map[string]*domain.BusinessCalendar
}

func (f *fakeCalendars) CalendarFor(_ context.Context, resourceID string) (*domain.BusinessCalendar, error) {
	return f.byResource[resourceID], nil
}

// movingCalendars выполняет побочное действие при первом чтении
// календаря. Чтение идет до захвата блокировок, так что move имитирует
// коммит конкурента между снимком приема и захватом.
type movingCalendars struct {
	mu    sync.Mutex
	moved bool
	move  func()
}

func (f *movingCalendars) CalendarFor(context.Context, string) (*domain.BusinessCalendar, error) {
	f.mu.Lock()
	fire := !f.moved
	f.moved = true
	f.mu.Unlock()
	if fire {
		f.move()
	}
	return nil, nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []domain.StateChangeEvent
}

func (f *fakeSink) Publish(_ context.Context, event domain.StateChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) snapshot() []domain.StateChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.StateChangeEvent(nil), f.events...)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func newTestCoordinator() (*Coordinator, *memStore, *fakeSink) {
	store := newMemStore()
	sink := &fakeSink{}
	c := New(store, &fakeCalendars{}, sink, nopLogger{})
	return c, store, sink
}

func createRequest(professionals []string, roomID *string, start, end time.Time) *CreateRequest {
	return &CreateRequest{
		PatientID:       "patient-1",
		ProfessionalIDs: professionals,
		RoomID:          roomID,
		Start:           start,
		End:             end,
	}
}

// --- тесты ---

func TestCreateAndGet(t *testing.T) {
	c, store, _ := newTestCoordinator()

	appt, err := c.Create(context.Background(), createRequest([]string{"prof-P"}, ptr.Ptr("room-R1"), at(10, 0), at(11, 0)))
	require.NoError(t, err)

	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, domain.StatusScheduled, appt.Status)
	assert.Equal(t, int64(1), appt.Version)
	assert.ElementsMatch(t, []string{"prof-P", "room-R1"}, appt.Resources())

	got, err := c.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
	assert.True(t, appt.Interval.Equal(got.Interval))

	assert.Equal(t, 1, store.count())

	_, err = c.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCreateInvalidInput(t *testing.T) {
	c, store, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := c.Create(ctx, createRequest(nil, nil, at(10, 0), at(11, 0)))
	require.ErrorIs(t, err, ErrInvalidInput)

	req := createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0))
	req.PatientID = "  "
	_, err = c.Create(ctx, req)
	require.ErrorIs(t, err, ErrInvalidInput)

	// Нулевая длина интервала
	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(10, 0)))
	require.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, store.count())
}

func TestCreateOutsideWorkingHours(t *testing.T) {
	c, _, _ := newTestCoordinator()

	// [08:00,08:30) при окне по умолчанию 09:00-18:00
	_, err := c.Create(context.Background(), createRequest([]string{"prof-P"}, nil, at(8, 0), at(8, 30)))
	require.ErrorIs(t, err, calendar.ErrOutsideWorkingHours)

	var violation *resolver.CalendarViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "prof-P", violation.ResourceID)
}

// Сценарий из контрактных тестов: P занят [10:00,11:00) в R1
func TestCreateConflictScenario(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	_, err := c.Create(ctx, createRequest([]string{"prof-P"}, ptr.Ptr("room-R1"), at(10, 0), at(11, 0)))
	require.NoError(t, err)

	// P занят -> Conflict{Professional}
	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, ptr.Ptr("room-R2"), at(10, 30), at(11, 30)))
	var conflict *resolver.Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictProfessional, conflict.Kind)
	assert.Equal(t, "prof-P", conflict.ResourceID)

	// R1 занят -> Conflict{Room}
	_, err = c.Create(ctx, createRequest([]string{"prof-Q"}, ptr.Ptr("room-R1"), at(10, 30), at(11, 30)))
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictRoom, conflict.Kind)
	assert.Equal(t, "room-R1", conflict.ResourceID)

	// Q + R2 свободны -> approved
	_, err = c.Create(ctx, createRequest([]string{"prof-Q"}, ptr.Ptr("room-R2"), at(10, 30), at(11, 30)))
	require.NoError(t, err)
}

func TestRescheduleSameIntervalBumpsVersion(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)

	// Перенос на идентичный интервал всегда успешен
	updated, err := c.Reschedule(ctx, &RescheduleRequest{
		AppointmentID:   appt.ID,
		Start:           at(10, 0),
		End:             at(11, 0),
		ExpectedVersion: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, domain.StatusScheduled, updated.Status)
	assert.True(t, updated.Interval.Equal(appt.Interval))
}

func TestRescheduleStaleVersion(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)

	_, err = c.Reschedule(ctx, &RescheduleRequest{
		AppointmentID:   appt.ID,
		Start:           at(14, 0),
		End:             at(15, 0),
		ExpectedVersion: 7,
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	// Бронь не изменилась
	got, err := c.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.Interval.Equal(appt.Interval))
}

func TestRescheduleRejectionLeavesStateUntouched(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	a, err := c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)
	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(12, 0), at(13, 0)))
	require.NoError(t, err)

	// Перенос A поверх B отклоняется
	_, err = c.Reschedule(ctx, &RescheduleRequest{
		AppointmentID:   a.ID,
		Start:           at(12, 30),
		End:             at(13, 30),
		ExpectedVersion: 1,
	})
	require.ErrorIs(t, err, resolver.ErrResourceBusy)

	// Состояние как до вызова: A на месте, слот A занят, версия не тронута
	got, err := c.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.Interval.Equal(a.Interval))

	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 30), at(11, 30)))
	require.ErrorIs(t, err, resolver.ErrResourceBusy)

	// А свободный слот остается свободным
	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(14, 0), at(15, 0)))
	require.NoError(t, err)
}

func TestRescheduleToAnotherRoomFreesOldRoom(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, ptr.Ptr("room-R1"), at(10, 0), at(11, 0)))
	require.NoError(t, err)

	updated, err := c.Reschedule(ctx, &RescheduleRequest{
		AppointmentID:   appt.ID,
		Start:           at(10, 0),
		End:             at(11, 0),
		RoomID:          ptr.Ptr("room-R2"),
		ExpectedVersion: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.RoomID)
	assert.Equal(t, "room-R2", *updated.RoomID)

	// R1 освободился, R2 занят
	_, err = c.Create(ctx, createRequest([]string{"prof-Q"}, ptr.Ptr("room-R1"), at(10, 0), at(11, 0)))
	require.NoError(t, err)

	_, err = c.Create(ctx, createRequest([]string{"prof-Z"}, ptr.Ptr("room-R2"), at(10, 0), at(11, 0)))
	var conflict *resolver.Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictRoom, conflict.Kind)
}

// Прием уезжает в другой кабинет между снимком и захватом блокировок:
// перенос обязан перечитать набор ресурсов и взять блокировки заново,
// иначе записи актуального кабинета правились бы без его блокировки.
func TestRescheduleAfterConcurrentMove(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, ptr.Ptr("room-R1"), at(10, 0), at(11, 0)))
	require.NoError(t, err)

	// Конкурент уводит прием в R2 в момент, когда наш перенос уже снял снимок
	c.calendars = &movingCalendars{move: func() {
		_, err := c.Reschedule(ctx, &RescheduleRequest{
			AppointmentID:   appt.ID,
			Start:           at(10, 0),
			End:             at(11, 0),
			RoomID:          ptr.Ptr("room-R2"),
			ExpectedVersion: 1,
		})
		require.NoError(t, err)
	}}

	updated, err := c.Reschedule(ctx, &RescheduleRequest{
		AppointmentID:   appt.ID,
		Start:           at(10, 0),
		End:             at(11, 0),
		RoomID:          ptr.Ptr("room-R3"),
		ExpectedVersion: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Version)
	require.NotNil(t, updated.RoomID)
	assert.Equal(t, "room-R3", *updated.RoomID)

	// Промежуточные кабинеты свободны, финальный занят
	_, err = c.Create(ctx, createRequest([]string{"prof-A"}, ptr.Ptr("room-R1"), at(10, 0), at(11, 0)))
	require.NoError(t, err)
	_, err = c.Create(ctx, createRequest([]string{"prof-B"}, ptr.Ptr("room-R2"), at(10, 0), at(11, 0)))
	require.NoError(t, err)

	_, err = c.Create(ctx, createRequest([]string{"prof-C"}, ptr.Ptr("room-R3"), at(10, 0), at(11, 0)))
	var conflict *resolver.Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "room-R3", conflict.ResourceID)
}

func TestCancelFreesSlot(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)

	require.NoError(t, c.Cancel(ctx, appt.ID))

	got, err := c.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, int64(2), got.Version)
	require.NotNil(t, got.CancelledAt)

	// Слот освободился для следующей брони
	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)

	// Повторная отмена - недопустимый переход
	err = c.Cancel(ctx, appt.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelInProgressFails(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)

	_, err = c.UpdateStatus(ctx, appt.ID, domain.StatusConfirmed)
	require.NoError(t, err)
	_, err = c.UpdateStatus(ctx, appt.ID, domain.StatusInProgress)
	require.NoError(t, err)

	err = c.Cancel(ctx, appt.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatusTransitions(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)

	// Пропуск подтверждения недопустим
	_, err = c.UpdateStatus(ctx, appt.ID, domain.StatusInProgress)
	require.ErrorIs(t, err, ErrInvalidTransition)

	for i, next := range []domain.AppointmentStatus{domain.StatusConfirmed, domain.StatusInProgress, domain.StatusCompleted} {
		updated, err := c.UpdateStatus(ctx, appt.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
		assert.Equal(t, int64(i+2), updated.Version)
	}

	_, err = c.UpdateStatus(ctx, appt.ID, domain.StatusConfirmed)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Отмена не ходит через смену статуса
	_, err = c.UpdateStatus(ctx, appt.ID, domain.StatusCancelled)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPersistenceFailureRollsBack(t *testing.T) {
	c, store, _ := newTestCoordinator()
	ctx := context.Background()

	store.failCreate = true
	_, err := c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.ErrorIs(t, err, ErrInternal)

	// Таймлайн откатился: слот свободен, повтор безопасен
	store.failCreate = false
	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)
	assert.Equal(t, 1, store.count())
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	c, store, _ := newTestCoordinator()

	const workers = 16
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Create(context.Background(), createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var approved, conflicts int
	for err := range results {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, resolver.ErrResourceBusy):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, approved)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, store.count())
}

func TestConcurrentDisjointResourcesAllSucceed(t *testing.T) {
	c, store, _ := newTestCoordinator()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			prof := fmt.Sprintf("prof-%d", i)
			room := fmt.Sprintf("room-%d", i)
			_, err := c.Create(context.Background(), createRequest([]string{prof}, &room, at(10, 0), at(11, 0)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, workers, store.count())
}

func TestLockTimeoutReturnsBusy(t *testing.T) {
	c, store, _ := newTestCoordinator()

	// Держим блокировку ресурса со стороны
	release, err := c.locks.acquire(context.Background(), []string{"prof-P"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 0, store.count(), "таймаут не оставляет частичных изменений")

	release()
	_, err = c.Create(context.Background(), createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)
}

func TestEventsEmittedOnCommits(t *testing.T) {
	c, _, sink := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, ptr.Ptr("room-R1"), at(10, 0), at(11, 0)))
	require.NoError(t, err)
	require.NoError(t, c.Cancel(ctx, appt.ID))

	// Отклоненная операция событий не порождает
	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(8, 0), at(8, 30)))
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 2
	}, time.Second, 10*time.Millisecond)

	// Публикация асинхронная, порядок прихода не гарантирован
	byStatus := make(map[domain.AppointmentStatus]domain.StateChangeEvent)
	for _, event := range sink.snapshot() {
		byStatus[event.NewStatus] = event
	}

	created, ok := byStatus[domain.StatusScheduled]
	require.True(t, ok)
	assert.Equal(t, appt.ID, created.AppointmentID)

	cancelled, ok := byStatus[domain.StatusCancelled]
	require.True(t, ok)
	assert.Equal(t, domain.StatusScheduled, cancelled.PreviousStatus)
	assert.ElementsMatch(t, []string{"prof-P", "room-R1"}, cancelled.ResourcesTouched)
}

func TestHydrateRestoresTimelines(t *testing.T) {
	c, store, _ := newTestCoordinator()
	ctx := context.Background()

	appt, err := c.Create(ctx, createRequest([]string{"prof-P"}, ptr.Ptr("room-R1"), at(10, 0), at(11, 0)))
	require.NoError(t, err)

	// Новый координатор поверх того же хранилища
	restarted := New(store, &fakeCalendars{}, &fakeSink{}, nopLogger{})
	require.NoError(t, restarted.Hydrate(ctx))

	got, err := restarted.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)

	_, err = restarted.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 30), at(11, 30)))
	require.ErrorIs(t, err, resolver.ErrResourceBusy)
}

func TestAvailableSlots(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	// Календарь с обеденной блокировкой 13:00-14:00
	cal := domain.DefaultBusinessCalendar()
	lunch, err := domain.NewInterval(at(13, 0), at(14, 0))
	require.NoError(t, err)
	cal.Blocked = []domain.BlockedSlot{{Interval: lunch, Reason: "lunch"}}
	c.calendars = &fakeCalendars{byResource: map[string]*domain.BusinessCalendar{"prof-P": cal}}

	_, err = c.Create(ctx, createRequest([]string{"prof-P"}, nil, at(10, 0), at(11, 0)))
	require.NoError(t, err)

	slots, err := c.AvailableSlots(ctx, "prof-P", monday, 60)
	require.NoError(t, err)

	// 09..18 с шагом 60: заняты 10:00 (бронь) и 13:00 (обед)
	starts := make([]string, 0, len(slots))
	for _, s := range slots {
		starts = append(starts, s.Start.Format("15:04"))
	}
	assert.Equal(t, []string{"09:00", "11:00", "12:00", "14:00", "15:00", "16:00", "17:00"}, starts)

	// Закрытый день - пусто
	saturday := monday.AddDate(0, 0, 5)
	slots, err = c.AvailableSlots(ctx, "prof-P", saturday, 60)
	require.NoError(t, err)
	assert.Empty(t, slots)
}
