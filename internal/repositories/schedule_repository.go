package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"retail-backend/internal/db"
	"retail-backend/internal/models"
	"retail-backend/internal/timeutil"
)

type ScheduleRepository struct {
	DB *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{DB: pool}
}

const scheduleSelect = `
	SELECT s.id, s.employee_id, COALESCE(u.name, ''), s.store_id, s.shift_template_id,
	       s.work_date, s.status, s.attendance_status, s.created_by, s.created_at, s.updated_at,
	       t.name, t.start_time, t.end_time
	FROM schedules s
	JOIN shift_templates t ON t.id = s.shift_template_id
	LEFT JOIN users u ON u.id = s.employee_id
`

func scanSchedule(row pgx.Row) (*models.ScheduleEntry, error) {
	e := &models.ScheduleEntry{Template: &models.ShiftTemplate{}}
	var start, end pgtype.Time
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.EmployeeName, &e.StoreID, &e.ShiftTemplateID,
		&e.WorkDate, &e.Status, &e.AttendanceStatus, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&e.Template.Name, &start, &end,
	)
	if err != nil {
		return nil, err
	}
	e.Template.ID = e.ShiftTemplateID
	e.Template.StartTime = timeOfDay(start)
	e.Template.EndTime = timeOfDay(end)
	return e, nil
}

func timeOfDay(t pgtype.Time) timeutil.TimeOfDay {
	return timeutil.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

func collectSchedules(rows pgx.Rows) ([]*models.ScheduleEntry, error) {
	defer rows.Close()

	var entries []*models.ScheduleEntry
	for rows.Next() {
		e, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Create inserts a confirmed entry with attendance not_checked_in
func (r *ScheduleRepository) Create(ctx context.Context, e *models.ScheduleEntry) error {
	query := `
		INSERT INTO schedules (employee_id, store_id, shift_template_id, work_date, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, attendance_status, created_at, updated_at
	`

	err := db.Conn(ctx, r.DB).QueryRow(ctx, query,
		e.EmployeeID, e.StoreID, e.ShiftTemplateID, e.WorkDate, e.CreatedBy,
	).Scan(&e.ID, &e.Status, &e.AttendanceStatus, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id int) (*models.ScheduleEntry, error) {
	return scanSchedule(db.Conn(ctx, r.DB).QueryRow(ctx, scheduleSelect+` WHERE s.id = $1`, id))
}

// GetByIDForUpdate row-locks the entry for the rest of the transaction
func (r *ScheduleRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.ScheduleEntry, error) {
	return scanSchedule(db.Conn(ctx, r.DB).QueryRow(ctx, scheduleSelect+` WHERE s.id = $1 FOR UPDATE OF s`, id))
}

func (r *ScheduleRepository) ListCheckInCandidatesForUpdate(ctx context.Context, employeeID, storeID int, workDates []time.Time) ([]*models.ScheduleEntry, error) {
	query := scheduleSelect + `
		WHERE s.employee_id = $1 AND s.store_id = $2 AND s.work_date = ANY($3::date[])
		  AND s.status = 'confirmed'
		  AND s.attendance_status IN ('not_checked_in', 'checked_in')
		ORDER BY s.work_date, s.shift_template_id
		FOR UPDATE OF s
	`

	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, employeeID, storeID, workDates)
	if err != nil {
		return nil, fmt.Errorf("failed to load check-in candidates: %w", err)
	}
	return collectSchedules(rows)
}

func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]*models.ScheduleEntry, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StoreID > 0 {
		add("s.store_id = $%d", filter.StoreID)
	}
	if filter.EmployeeID > 0 {
		add("s.employee_id = $%d", filter.EmployeeID)
	}
	if filter.DateFrom != nil {
		add("s.work_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("s.work_date <= $%d", *filter.DateTo)
	}

	query := scheduleSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.work_date, t.start_time, s.id"

	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return collectSchedules(rows)
}

func (r *ScheduleRepository) SetAttendance(ctx context.Context, id int, from, to models.AttendanceStatus) (bool, error) {
	result, err := db.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE schedules
		SET attendance_status = $3, updated_at = NOW()
		WHERE id = $1 AND attendance_status = $2
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update attendance: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// Reassign moves a confirmed entry to another employee
func (r *ScheduleRepository) Reassign(ctx context.Context, id, employeeID int) error {
	result, err := db.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE schedules
		SET employee_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`, id, employeeID)
	if err != nil {
		return fmt.Errorf("failed to reassign schedule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Cancel supersedes an entry. Attendance is left untouched.
func (r *ScheduleRepository) Cancel(ctx context.Context, id int) (bool, error) {
	result, err := db.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE schedules
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel schedule: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *ScheduleRepository) MarkAbsent(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `
		UPDATE schedules
		SET attendance_status = 'absent', updated_at = NOW()
		WHERE attendance_status = 'not_checked_in'
		  AND id IN (
			SELECT s.id
			FROM schedules s
			JOIN shift_templates t ON t.id = s.shift_template_id
			WHERE s.status = 'confirmed'
			  AND s.attendance_status = 'not_checked_in'
			  AND s.work_date + t.end_time
			      + CASE WHEN t.end_time <= t.start_time THEN INTERVAL '1 day' ELSE INTERVAL '0' END
			      < $1::timestamp
			ORDER BY s.id
			LIMIT $2
			FOR UPDATE OF s SKIP LOCKED
		  )
	`

	result, err := db.Conn(ctx, r.DB).Exec(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to mark absences: %w", err)
	}
	return result.RowsAffected(), nil
}
