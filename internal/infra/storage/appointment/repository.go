package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/PMC-SchedulingService/internal/domain"
	"github.com/m04kA/PMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/PMC-SchedulingService/pkg/psqlbuilder"
)

const uniqueViolationCode = "23505"

var appointmentColumns = []string{
	"id",
	"patient_id",
	"professional_ids",
	"room_id",
	"start_time",
	"end_time",
	"status",
	"version",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с приемами
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория приемов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новый прием. ID генерируется движком расписания,
// а не базой. Если в контексте передана активная транзакция, использует её.
func (r *Repository) Create(ctx context.Context, appt *domain.Appointment) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("appointments").
		Columns(appointmentColumns...).
		Values(
			appt.ID,
			appt.PatientID,
			pq.Array(appt.ProfessionalIDs),
			appt.RoomID,
			appt.Interval.Start,
			appt.Interval.End,
			appt.Status,
			appt.Version,
			appt.CancelledAt,
			appt.CreatedAt,
			appt.UpdatedAt,
		).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
			return fmt.Errorf("%w: id=%s", ErrDuplicateID, appt.ID)
		}
		return fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// Update перезаписывает прием целиком по ID. Контроль версий выполняет
// движок расписания под блокировками ресурсов, поэтому запись
// безусловная.
func (r *Repository) Update(ctx context.Context, appt *domain.Appointment) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("appointments").
		Set("patient_id", appt.PatientID).
		Set("professional_ids", pq.Array(appt.ProfessionalIDs)).
		Set("room_id", appt.RoomID).
		Set("start_time", appt.Interval.Start).
		Set("end_time", appt.Interval.End).
		Set("status", appt.Status).
		Set("version", appt.Version).
		Set("cancelled_at", appt.CancelledAt).
		Set("updated_at", appt.UpdatedAt).
		Where(squirrel.Eq{"id": appt.ID}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Update - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Update - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Update - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrAppointmentNotFound
	}

	return nil
}

// GetByID получает прием по ID
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	appt, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %v", ErrScanRow, err)
	}

	return appt, nil
}

// ListLive получает все неотмененные приемы. Используется движком
// расписания для восстановления таймлайнов при старте.
func (r *Repository) ListLive(ctx context.Context) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	liveStatuses := make([]string, len(domain.LiveStatuses))
	for i, s := range domain.LiveStatuses {
		liveStatuses[i] = string(s)
	}

	query, args, err := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"status": liveStatuses}).
		OrderBy("start_time ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListLive - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListLive - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListByProfessional получает приемы специалиста.
// Опционально фильтрует по периоду и статусу.
func (r *Repository) ListByProfessional(ctx context.Context, professionalID string, filter domain.AppointmentsFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where("? = ANY(professional_ids)", professionalID)

	// Фильтрация по периоду: пересечение [From, To) с интервалом приема
	if filter.From != nil {
		selectBuilder = selectBuilder.Where(squirrel.Gt{"end_time": *filter.From})
	}
	if filter.To != nil {
		selectBuilder = selectBuilder.Where(squirrel.Lt{"start_time": *filter.To})
	}

	// Фильтрация по статусу, если указан
	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": string(*filter.Status)})
	}

	query, args, err := selectBuilder.
		OrderBy("start_time ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListByProfessional - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByProfessional - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var (
		appt             domain.Appointment
		professionals    pq.StringArray
		start, end       time.Time
		status           string
		cancelledAt      sql.NullTime
		created, updated sql.NullTime
	)

	err := row.Scan(
		&appt.ID,
		&appt.PatientID,
		&professionals,
		&appt.RoomID,
		&start,
		&end,
		&status,
		&appt.Version,
		&cancelledAt,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	interval, err := domain.NewInterval(start, end)
	if err != nil {
		return nil, fmt.Errorf("malformed interval for id=%s: %v", appt.ID, err)
	}

	appt.ProfessionalIDs = []string(professionals)
	appt.Interval = interval
	appt.Status = domain.AppointmentStatus(status)
	if cancelledAt.Valid {
		appt.CancelledAt = &cancelledAt.Time
	}
	appt.CreatedAt = created.Time
	appt.UpdatedAt = updated.Time

	return &appt, nil
}

func scanAppointments(rows *sql.Rows) ([]*domain.Appointment, error) {
	appointments := make([]*domain.Appointment, 0)

	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanAppointments - scan row: %v", ErrScanRow, err)
		}
		appointments = append(appointments, appt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanAppointments - rows error: %v", ErrScanRow, err)
	}

	return appointments, nil
}
