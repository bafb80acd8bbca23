package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/PMC-SchedulingService/pkg/psqlbuilder"
	"github.com/m04kA/PMC-SchedulingService/pkg/types"
)

// Repository репозиторий для работы с бизнес-календарями.
//
// Календарь хранится в трех таблицах: calendar_limits (границы
// длительности, одна строка на календарь), calendar_hours (рабочие окна
// по дням недели) и calendar_blocked (заблокированные диапазоны).
// resource_id = NULL обозначает клинический календарь по умолчанию.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория календарей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByResource получает календарь ресурса. resourceID = nil читает
// клинический календарь по умолчанию. Возвращает ErrCalendarNotFound,
// если календарь не настроен.
func (r *Repository) GetByResource(ctx context.Context, resourceID *string) (*domain.BusinessCalendar, error) {
	cal := &domain.BusinessCalendar{}

	found, err := r.loadLimits(ctx, resourceID, cal)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCalendarNotFound
	}

	if err := r.loadHours(ctx, resourceID, cal); err != nil {
		return nil, err
	}
	if err := r.loadBlocked(ctx, resourceID, cal); err != nil {
		return nil, err
	}

	return cal, nil
}

// Replace атомарно перезаписывает календарь ресурса: удаляет старые
// строки всех трех таблиц и вставляет новые. Предполагается вызов
// внутри транзакции (через txmanager) - иначе возможно чтение
// полупустого календаря конкурентным запросом.
func (r *Repository) Replace(ctx context.Context, resourceID *string, cal *domain.BusinessCalendar) error {
	if err := r.deleteAll(ctx, resourceID); err != nil {
		return err
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("calendar_limits").
		Columns("resource_id", "min_duration_minutes", "max_duration_minutes").
		Values(resourceID, cal.MinDurationMinutes, cal.MaxDurationMinutes).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Replace - build limits insert: %v", ErrBuildQuery, err)
	}
	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Replace - insert limits: %v", ErrExecQuery, err)
	}

	hoursBuilder := psqlbuilder.Insert("calendar_hours").
		Columns("resource_id", "weekday", "is_open", "open_time", "close_time")
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		window := cal.WorkingHours.ForWeekday(weekday)
		hoursBuilder = hoursBuilder.Values(
			resourceID,
			int(weekday),
			window.IsOpen,
			window.OpenTime.String(),
			window.CloseTime.String(),
		)
	}
	query, args, err = hoursBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: Replace - build hours insert: %v", ErrBuildQuery, err)
	}
	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Replace - insert hours: %v", ErrExecQuery, err)
	}

	if len(cal.Blocked) == 0 {
		return nil
	}

	blockedBuilder := psqlbuilder.Insert("calendar_blocked").
		Columns("resource_id", "start_time", "end_time", "reason")
	for _, slot := range cal.Blocked {
		blockedBuilder = blockedBuilder.Values(resourceID, slot.Interval.Start, slot.Interval.End, slot.Reason)
	}
	query, args, err = blockedBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: Replace - build blocked insert: %v", ErrBuildQuery, err)
	}
	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Replace - insert blocked: %v", ErrExecQuery, err)
	}

	return nil
}

// Delete удаляет календарь ресурса. Отсутствие календаря не считается
// ошибкой - ресурс просто возвращается на клинический дефолт.
func (r *Repository) Delete(ctx context.Context, resourceID *string) error {
	return r.deleteAll(ctx, resourceID)
}

func (r *Repository) deleteAll(ctx context.Context, resourceID *string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	for _, table := range []string{"calendar_limits", "calendar_hours", "calendar_blocked"} {
		query, args, err := psqlbuilder.Delete(table).
			Where(resourceFilter(resourceID)).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: deleteAll - build delete for %s: %v", ErrBuildQuery, table, err)
		}
		if _, err := executor.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: deleteAll - delete from %s: %v", ErrExecQuery, table, err)
		}
	}

	return nil
}

func (r *Repository) loadLimits(ctx context.Context, resourceID *string, cal *domain.BusinessCalendar) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("min_duration_minutes", "max_duration_minutes").
		From("calendar_limits").
		Where(resourceFilter(resourceID)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: loadLimits - build select query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&cal.MinDurationMinutes,
		&cal.MaxDurationMinutes,
	)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: loadLimits - scan limits: %v", ErrScanRow, err)
	}

	return true, nil
}

func (r *Repository) loadHours(ctx context.Context, resourceID *string, cal *domain.BusinessCalendar) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("weekday", "is_open", "open_time", "close_time").
		From("calendar_hours").
		Where(resourceFilter(resourceID)).
		OrderBy("weekday ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: loadHours - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: loadHours - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			weekday             int
			isOpen              bool
			openTime, closeTime string
		)
		if err := rows.Scan(&weekday, &isOpen, &openTime, &closeTime); err != nil {
			return fmt.Errorf("%w: loadHours - scan row: %v", ErrScanRow, err)
		}

		window := domain.DayWindow{IsOpen: isOpen}
		if isOpen {
			window.OpenTime, err = types.NewTimeStringFromString(openTime)
			if err != nil {
				return fmt.Errorf("%w: loadHours - open_time %q: %v", ErrMalformedWindow, openTime, err)
			}
			window.CloseTime, err = types.NewTimeStringFromString(closeTime)
			if err != nil {
				return fmt.Errorf("%w: loadHours - close_time %q: %v", ErrMalformedWindow, closeTime, err)
			}
		}

		if err := setWindow(&cal.WorkingHours, time.Weekday(weekday), window); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: loadHours - rows error: %v", ErrScanRow, err)
	}

	return nil
}

func (r *Repository) loadBlocked(ctx context.Context, resourceID *string, cal *domain.BusinessCalendar) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("start_time", "end_time", "reason").
		From("calendar_blocked").
		Where(resourceFilter(resourceID)).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: loadBlocked - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: loadBlocked - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			start, end time.Time
			reason     string
		)
		if err := rows.Scan(&start, &end, &reason); err != nil {
			return fmt.Errorf("%w: loadBlocked - scan row: %v", ErrScanRow, err)
		}

		interval, err := domain.NewInterval(start, end)
		if err != nil {
			return fmt.Errorf("%w: loadBlocked - malformed range: %v", ErrScanRow, err)
		}
		cal.Blocked = append(cal.Blocked, domain.BlockedSlot{Interval: interval, Reason: reason})
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: loadBlocked - rows error: %v", ErrScanRow, err)
	}

	return nil
}

func resourceFilter(resourceID *string) squirrel.Eq {
	if resourceID == nil {
		return squirrel.Eq{"resource_id": nil}
	}
	return squirrel.Eq{"resource_id": *resourceID}
}

func setWindow(schedule *domain.WeekSchedule, weekday time.Weekday, window domain.DayWindow) error {
	switch weekday {
	case time.Sunday:
		schedule.Sunday = window
	case time.Monday:
		schedule.Monday = window
	case time.Tuesday:
		schedule.Tuesday = window
	case time.Wednesday:
		schedule.Wednesday = window
	case time.Thursday:
		schedule.Thursday = window
	case time.Friday:
		schedule.Friday = window
	case time.Saturday:
		schedule.Saturday = window
	default:
		return fmt.Errorf("%w: unknown weekday %d", ErrMalformedWindow, weekday)
	}
	return nil
}
