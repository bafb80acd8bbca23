// Package coordinator сериализует операции бронирования над общими
// ресурсами клиники. Владеет таймлайнами ресурсов, записями приемов и
// машиной статусов; все мутации проходят через единый путь
// "валидация -> блокировки -> коммит".
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/resolver"
	"github.com/m04kA/PMC-SchedulingService/internal/scheduling/timeline"
)

const eventPublishTimeout = 5 * time.Second

// Coordinator владеет изменяемым состоянием движка расписания
type Coordinator struct {
	// mu защищает обе map; сами таймлайны защищены блокировками ресурсов
	mu           sync.RWMutex
	appointments map[string]*domain.Appointment
	timelines    map[string]*timeline.Timeline

	locks        *lockTable
	store        AppointmentStore
	calendars    CalendarSource
	events       EventSink
	timeProvider TimeProvider
	newID        func() string
	logger       Logger
}

// New создает координатор бронирований
func New(store AppointmentStore, calendars CalendarSource, events EventSink, logger Logger) *Coordinator {
	return &Coordinator{
		appointments: make(map[string]*domain.Appointment),
		timelines:    make(map[string]*timeline.Timeline),
		locks:        newLockTable(),
		store:        store,
		calendars:    calendars,
		events:       events,
		timeProvider: &RealTimeProvider{},
		newID:        uuid.NewString,
		logger:       logger,
	}
}

// timelineFor возвращает таймлайн ресурса, создавая его при первом обращении
func (c *Coordinator) timelineFor(resourceID string) *timeline.Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	tl, ok := c.timelines[resourceID]
	if !ok {
		tl = timeline.New(resourceID)
		c.timelines[resourceID] = tl
	}
	return tl
}

// timelineView адаптер для resolver
func (c *Coordinator) timelineView(resourceID string) resolver.TimelineView {
	return c.timelineFor(resourceID)
}

// Hydrate загружает живые приемы из хранилища в таймлайны при старте.
// Вызывается до открытия HTTP порта, конкурентных операций еще нет.
func (c *Coordinator) Hydrate(ctx context.Context) error {
	appointments, err := c.store.ListLive(ctx)
	if err != nil {
		return fmt.Errorf("%w: hydrate - list appointments: %v", ErrInternal, err)
	}

	loaded := 0
	for _, appt := range appointments {
		if err := c.admit(appt); err != nil {
			// Пересекающиеся данные в хранилище - не валим старт, но шумим
			c.logger.Error("Hydrate: skipping appointment id=%s: %v", appt.ID, err)
			continue
		}
		loaded++
	}

	c.logger.Info("Hydrate: loaded %d of %d live appointments", loaded, len(appointments))
	return nil
}

// admit вставляет прием во все его таймлайны либо ни в один
func (c *Coordinator) admit(appt *domain.Appointment) error {
	resources := appt.Resources()
	inserted := make([]string, 0, len(resources))

	for _, rid := range resources {
		if err := c.timelineFor(rid).Insert(appt.Interval, appt.ID); err != nil {
			for _, undo := range inserted {
				c.timelineFor(undo).Delete(appt.ID)
			}
			return err
		}
		inserted = append(inserted, rid)
	}

	c.mu.Lock()
	c.appointments[appt.ID] = appt
	c.mu.Unlock()
	return nil
}

// Get возвращает снимок приема для сверки версии клиентом
func (c *Coordinator) Get(_ context.Context, appointmentID string) (*domain.Appointment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	appt, ok := c.appointments[appointmentID]
	if !ok {
		return nil, fmt.Errorf("%w: id=%s", ErrAppointmentNotFound, appointmentID)
	}
	return appt.Clone(), nil
}

// Create создает прием: валидация входа, блокировки ресурсов в глобальном
// порядке, проверка резолвером, коммит в таймлайны и хранилище.
// Любой отказ оставляет состояние нетронутым.
func (c *Coordinator) Create(ctx context.Context, req *CreateRequest) (*domain.Appointment, error) {
	professionals, err := normalizeProfessionals(req.ProfessionalIDs)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PatientID) == "" {
		return nil, fmt.Errorf("%w: patientId is required", ErrInvalidInput)
	}
	interval, err := domain.NewInterval(req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := c.timeProvider.Now()
	appt := &domain.Appointment{
		ID:              c.newID(),
		PatientID:       req.PatientID,
		ProfessionalIDs: professionals,
		RoomID:          normalizeRoom(req.RoomID),
		Interval:        interval,
		Status:          domain.StatusScheduled,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	resources := appt.Resources()

	c.logger.Info("Create: patient=%s resources=%v interval=[%s, %s)",
		appt.PatientID, resources, interval.Start.Format(time.RFC3339), interval.End.Format(time.RFC3339))

	// Календари читаем до взятия блокировок: под блокировками никакого I/O
	// к внешним коллабораторам
	calendars, err := c.prefetchCalendars(ctx, resources)
	if err != nil {
		return nil, err
	}

	release, err := c.locks.acquire(ctx, resources)
	if err != nil {
		c.logger.Warn("Create: lock acquisition timed out: %v", err)
		return nil, err
	}
	defer release()

	if err := resolver.Resolve(appt, calendars, c.timelineView); err != nil {
		c.logger.Warn("Create: rejected: %v", err)
		return nil, err
	}

	if err := c.commitNew(ctx, appt, resources); err != nil {
		return nil, err
	}

	c.logger.Info("Create: committed appointment id=%s version=%d", appt.ID, appt.Version)
	c.emit(appt.ID, "", appt.Status, resources)
	return appt.Clone(), nil
}

// commitNew вставляет прием в таймлайны и хранилище; при ошибке
// персистентности откатывает вставки
func (c *Coordinator) commitNew(ctx context.Context, appt *domain.Appointment, resources []string) error {
	inserted := make([]string, 0, len(resources))
	for _, rid := range resources {
		if err := c.timelineFor(rid).Insert(appt.Interval, appt.ID); err != nil {
			for _, undo := range inserted {
				c.timelineFor(undo).Delete(appt.ID)
			}
			return fmt.Errorf("%w: timeline insert after resolve: %v", ErrInternal, err)
		}
		inserted = append(inserted, rid)
	}

	if err := c.store.Create(ctx, appt); err != nil {
		for _, undo := range inserted {
			c.timelineFor(undo).Delete(appt.ID)
		}
		c.logger.Error("Create: persistence failed for id=%s: %v", appt.ID, err)
		return fmt.Errorf("%w: persist appointment: %v", ErrInternal, err)
	}

	c.mu.Lock()
	c.appointments[appt.ID] = appt
	c.mu.Unlock()
	return nil
}

// Reschedule атомарно переносит прием на новый интервал (и, опционально,
// других специалистов/кабинет). Статус не меняется, версия растет на 1.
// Отказ любого рода оставляет исходную бронь полностью нетронутой.
func (c *Coordinator) Reschedule(ctx context.Context, req *RescheduleRequest) (*domain.Appointment, error) {
	interval, err := domain.NewInterval(req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var replacement []string
	if req.ProfessionalIDs != nil {
		replacement, err = normalizeProfessionals(req.ProfessionalIDs)
		if err != nil {
			return nil, err
		}
	}

	// Набор блокировок зависит от снимка приема, а между снимком и захватом
	// прием мог уехать на другие ресурсы конкурентным переносом - тогда
	// объединение не покрывает его текущие записи. Та же дисциплина, что и
	// в lockCurrent: отпускаем и пробуем заново.
	for {
		snapshot, err := c.Get(ctx, req.AppointmentID)
		if err != nil {
			return nil, err
		}

		candidate := snapshot.Clone()
		candidate.Interval = interval
		if replacement != nil {
			candidate.ProfessionalIDs = append([]string(nil), replacement...)
		}
		switch {
		case req.RoomID != nil:
			candidate.RoomID = normalizeRoom(req.RoomID)
		case req.ClearRoom:
			candidate.RoomID = nil
		}

		// Блокировки на объединение старого и нового набора ресурсов -
		// в том же глобальном порядке, что и у всех остальных операций
		union := sortedUnion(snapshot.Resources(), candidate.Resources())

		calendars, err := c.prefetchCalendars(ctx, candidate.Resources())
		if err != nil {
			return nil, err
		}

		release, err := c.locks.acquire(ctx, union)
		if err != nil {
			c.logger.Warn("Reschedule: lock acquisition timed out: id=%s: %v", req.AppointmentID, err)
			return nil, err
		}

		c.mu.RLock()
		current, ok := c.appointments[req.AppointmentID]
		c.mu.RUnlock()
		if !ok {
			release()
			return nil, fmt.Errorf("%w: id=%s", ErrAppointmentNotFound, req.AppointmentID)
		}

		if !equalStringSets(snapshot.Resources(), current.Resources()) {
			release()
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
			default:
			}
			continue
		}

		result, err := c.rescheduleLocked(ctx, req, current, candidate, calendars, union)
		release()
		return result, err
	}
}

// rescheduleLocked выполняет перенос под уже взятыми блокировками union.
// Набор ресурсов current к этому моменту сверен со снимком, по которому
// считался union; проверка версии закрывает остальные гонки (любой коммит
// поднимает версию).
func (c *Coordinator) rescheduleLocked(
	ctx context.Context,
	req *RescheduleRequest,
	current, candidate *domain.Appointment,
	calendars map[string]*domain.BusinessCalendar,
	union []string,
) (*domain.Appointment, error) {
	if current.Version != req.ExpectedVersion {
		c.logger.Warn("Reschedule: stale version for id=%s: expected=%d actual=%d",
			req.AppointmentID, req.ExpectedVersion, current.Version)
		return nil, fmt.Errorf("%w: expected=%d actual=%d", ErrVersionConflict, req.ExpectedVersion, current.Version)
	}
	if !current.CanBeRescheduled() {
		return nil, fmt.Errorf("%w: cannot reschedule %s appointment", ErrInvalidTransition, current.Status)
	}

	// Временно снимаем старые записи, чтобы собственный интервал приема
	// не считался конфликтом
	removed := make(map[string]timeline.Entry, len(current.Resources()))
	for _, rid := range current.Resources() {
		if entry, ok := c.timelineFor(rid).Delete(current.ID); ok {
			removed[rid] = entry
		}
	}

	restore := func() {
		for rid, entry := range removed {
			if err := c.timelineFor(rid).Insert(entry.Interval, entry.AppointmentID); err != nil {
				// Недостижимо под блокировками; фиксируем, если инвариант нарушен
				c.logger.Error("Reschedule: failed to restore entry id=%s resource=%s: %v",
					entry.AppointmentID, rid, err)
			}
		}
	}

	if err := resolver.Resolve(candidate, calendars, c.timelineView); err != nil {
		restore()
		c.logger.Warn("Reschedule: rejected: id=%s: %v", req.AppointmentID, err)
		return nil, err
	}

	newResources := candidate.Resources()
	inserted := make([]string, 0, len(newResources))
	for _, rid := range newResources {
		if err := c.timelineFor(rid).Insert(candidate.Interval, candidate.ID); err != nil {
			for _, undo := range inserted {
				c.timelineFor(undo).Delete(candidate.ID)
			}
			restore()
			return nil, fmt.Errorf("%w: timeline insert after resolve: %v", ErrInternal, err)
		}
		inserted = append(inserted, rid)
	}

	candidate.Status = current.Status
	candidate.Version = current.Version + 1
	candidate.UpdatedAt = c.timeProvider.Now()

	if err := c.store.Update(ctx, candidate); err != nil {
		for _, undo := range inserted {
			c.timelineFor(undo).Delete(candidate.ID)
		}
		restore()
		c.logger.Error("Reschedule: persistence failed for id=%s: %v", req.AppointmentID, err)
		return nil, fmt.Errorf("%w: persist appointment: %v", ErrInternal, err)
	}

	c.mu.Lock()
	c.appointments[candidate.ID] = candidate
	c.mu.Unlock()

	c.logger.Info("Reschedule: committed id=%s version=%d", candidate.ID, candidate.Version)
	c.emit(candidate.ID, candidate.Status, candidate.Status, union)
	return candidate.Clone(), nil
}

// Cancel переводит прием в Cancelled и освобождает его слоты в таймлайнах.
// Записи остаются в истории как неактивные. InProgress и Completed
// отменить нельзя.
func (c *Coordinator) Cancel(ctx context.Context, appointmentID string) error {
	current, release, err := c.lockCurrent(ctx, appointmentID)
	if err != nil {
		return err
	}
	defer release()

	if !current.CanBeCancelled() {
		return fmt.Errorf("%w: cannot cancel %s appointment", ErrInvalidTransition, current.Status)
	}

	resources := current.Resources()
	for _, rid := range resources {
		c.timelineFor(rid).Remove(current.ID)
	}

	now := c.timeProvider.Now()
	updated := current.Clone()
	previous := updated.Status
	updated.Status = domain.StatusCancelled
	updated.Version++
	updated.CancelledAt = &now
	updated.UpdatedAt = now

	if err := c.store.Update(ctx, updated); err != nil {
		for _, rid := range resources {
			c.timelineFor(rid).Reactivate(current.ID)
		}
		c.logger.Error("Cancel: persistence failed for id=%s: %v", appointmentID, err)
		return fmt.Errorf("%w: persist appointment: %v", ErrInternal, err)
	}

	c.mu.Lock()
	c.appointments[appointmentID] = updated
	c.mu.Unlock()

	c.logger.Info("Cancel: committed id=%s version=%d", appointmentID, updated.Version)
	c.emit(appointmentID, previous, domain.StatusCancelled, resources)
	return nil
}

// UpdateStatus выполняет явные переходы статуса: подтверждение, начало и
// завершение сеанса. Отмена идет через Cancel - она дополнительно
// освобождает таймлайны.
func (c *Coordinator) UpdateStatus(ctx context.Context, appointmentID string, next domain.AppointmentStatus) (*domain.Appointment, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}
	if next == domain.StatusCancelled {
		return nil, fmt.Errorf("%w: cancellation goes through the cancel operation", ErrInvalidInput)
	}

	current, release, err := c.lockCurrent(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	if !current.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}

	updated := current.Clone()
	previous := updated.Status
	updated.Status = next
	updated.Version++
	updated.UpdatedAt = c.timeProvider.Now()

	if err := c.store.Update(ctx, updated); err != nil {
		c.logger.Error("UpdateStatus: persistence failed for id=%s: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: persist appointment: %v", ErrInternal, err)
	}

	c.mu.Lock()
	c.appointments[appointmentID] = updated
	c.mu.Unlock()

	c.logger.Info("UpdateStatus: committed id=%s %s -> %s", appointmentID, previous, next)
	c.emit(appointmentID, previous, next, current.Resources())
	return updated.Clone(), nil
}

// lockCurrent берет блокировки ресурсов приема и возвращает его актуальную
// запись. Если между чтением и захватом блокировок набор ресурсов приема
// изменился (конкурентный перенос), пробует заново.
func (c *Coordinator) lockCurrent(ctx context.Context, appointmentID string) (*domain.Appointment, func(), error) {
	for {
		snapshot, err := c.Get(ctx, appointmentID)
		if err != nil {
			return nil, nil, err
		}
		resources := snapshot.Resources()

		release, err := c.locks.acquire(ctx, resources)
		if err != nil {
			return nil, nil, err
		}

		c.mu.RLock()
		current, ok := c.appointments[appointmentID]
		c.mu.RUnlock()
		if !ok {
			release()
			return nil, nil, fmt.Errorf("%w: id=%s", ErrAppointmentNotFound, appointmentID)
		}

		if equalStringSets(resources, current.Resources()) {
			return current, release, nil
		}

		// Прием уехал на другие ресурсы - блокировки не те, повторяем
		release()

		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
		default:
		}
	}
}

// emit отправляет событие смены состояния в внешний sink.
// Вызывается после коммита и вне блокировок; доставка не влияет на
// результат операции.
func (c *Coordinator) emit(appointmentID string, previous, next domain.AppointmentStatus, resources []string) {
	if c.events == nil {
		return
	}

	event := domain.StateChangeEvent{
		AppointmentID:    appointmentID,
		PreviousStatus:   previous,
		NewStatus:        next,
		ResourcesTouched: append([]string(nil), resources...),
		Timestamp:        c.timeProvider.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()

		if err := c.events.Publish(ctx, event); err != nil {
			c.logger.Warn("emit: failed to publish state change for id=%s: %v", appointmentID, err)
		}
	}()
}

// prefetchCalendars читает календари ресурсов до взятия блокировок
func (c *Coordinator) prefetchCalendars(ctx context.Context, resources []string) (map[string]*domain.BusinessCalendar, error) {
	calendars := make(map[string]*domain.BusinessCalendar, len(resources))
	for _, rid := range resources {
		cal, err := c.calendars.CalendarFor(ctx, rid)
		if err != nil {
			return nil, fmt.Errorf("%w: load calendar for resource=%s: %v", ErrInternal, rid, err)
		}
		calendars[rid] = cal // nil допустим - резолвер подставит дефолт
	}
	return calendars, nil
}

func normalizeProfessionals(ids []string) ([]string, error) {
	result := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: empty professional id", ErrInvalidInput)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: at least one professional is required", ErrInvalidInput)
	}
	return result, nil
}

func normalizeRoom(roomID *string) *string {
	if roomID == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*roomID)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sortedUnion(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	sort.Strings(union)
	return union
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
