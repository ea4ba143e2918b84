package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"retail-backend/internal/db"
	"retail-backend/internal/models"
)

type ShiftRepository struct {
	DB *pgxpool.Pool
}

func NewShiftRepository(pool *pgxpool.Pool) *ShiftRepository {
	return &ShiftRepository{DB: pool}
}

const shiftSelect = `
	SELECT s.id, s.cashier_id, COALESCE(u.name, ''), s.store_id, s.schedule_id, s.status,
	       s.opening_cash, s.closing_cash, s.cash_sales_total,
	       s.late_minutes, s.early_minutes, COALESCE(s.note, ''),
	       s.opened_at, s.closed_at
	FROM shifts s
	LEFT JOIN users u ON u.id = s.cashier_id
`

func scanShift(row pgx.Row) (*models.Shift, error) {
	s := &models.Shift{}
	var closing decimal.NullDecimal
	err := row.Scan(
		&s.ID, &s.CashierID, &s.CashierName, &s.StoreID, &s.ScheduleID, &s.Status,
		&s.OpeningCash, &closing, &s.CashSalesTotal,
		&s.LateMinutes, &s.EarlyMinutes, &s.Note,
		&s.OpenedAt, &s.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	if closing.Valid {
		s.ClosingCash = &closing.Decimal
	}
	return s, nil
}

func collectShifts(rows pgx.Rows) ([]*models.Shift, error) {
	defer rows.Close()

	var shifts []*models.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

// LockCashier takes a transaction-scoped advisory lock on (cashier, store)
func (r *ShiftRepository) LockCashier(ctx context.Context, cashierID, storeID int) error {
	_, err := db.Conn(ctx, r.DB).Exec(ctx, `SELECT pg_advisory_xact_lock($1::int, $2::int)`, cashierID, storeID)
	if err != nil {
		return fmt.Errorf("failed to lock cashier: %w", err)
	}
	return nil
}

func (r *ShiftRepository) Create(ctx context.Context, s *models.Shift) error {
	query := `
		INSERT INTO shifts (cashier_id, store_id, schedule_id, status, opening_cash, late_minutes, note, opened_at)
		VALUES ($1, $2, $3, 'opened', $4, $5, NULLIF($6, ''), $7)
		RETURNING id, status, cash_sales_total
	`

	err := db.Conn(ctx, r.DB).QueryRow(ctx, query,
		s.CashierID, s.StoreID, s.ScheduleID, s.OpeningCash, s.LateMinutes, s.Note, s.OpenedAt,
	).Scan(&s.ID, &s.Status, &s.CashSalesTotal)
	if err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

func (r *ShiftRepository) GetByID(ctx context.Context, id int) (*models.Shift, error) {
	return scanShift(db.Conn(ctx, r.DB).QueryRow(ctx, shiftSelect+` WHERE s.id = $1`, id))
}

func (r *ShiftRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.Shift, error) {
	return scanShift(db.Conn(ctx, r.DB).QueryRow(ctx, shiftSelect+` WHERE s.id = $1 FOR UPDATE OF s`, id))
}

// GetOpen returns pgx.ErrNoRows when the cashier has no opened shift at the store
func (r *ShiftRepository) GetOpen(ctx context.Context, cashierID, storeID int) (*models.Shift, error) {
	return scanShift(db.Conn(ctx, r.DB).QueryRow(ctx,
		shiftSelect+` WHERE s.cashier_id = $1 AND s.store_id = $2 AND s.status = 'opened'`,
		cashierID, storeID))
}

func (r *ShiftRepository) Close(ctx context.Context, s *models.Shift) (bool, error) {
	query := `
		UPDATE shifts
		SET status = 'closed', closing_cash = $2, cash_sales_total = $3,
		    early_minutes = $4, note = NULLIF($5, ''), closed_at = $6
		WHERE id = $1 AND status = 'opened'
	`

	result, err := db.Conn(ctx, r.DB).Exec(ctx, query,
		s.ID, s.ClosingCash, s.CashSalesTotal, s.EarlyMinutes, s.Note, s.ClosedAt)
	if err != nil {
		return false, fmt.Errorf("failed to close shift: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *ShiftRepository) List(ctx context.Context, filter models.ShiftFilter) ([]*models.Shift, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StoreID > 0 {
		add("s.store_id = $%d", filter.StoreID)
	}
	if filter.CashierID > 0 {
		add("s.cashier_id = $%d", filter.CashierID)
	}
	if filter.Status != "" {
		add("s.status = $%d", filter.Status)
	}

	query := shiftSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.opened_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	return collectShifts(rows)
}

// ListForReport returns closed shifts whose close time (or open time when
// missing) falls in [DateFrom, DateTo)
func (r *ShiftRepository) ListForReport(ctx context.Context, filter models.ShiftReportFilter) ([]*models.Shift, error) {
	conds := []string{"s.status = 'closed'"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StoreID > 0 {
		add("s.store_id = $%d", filter.StoreID)
	}
	if filter.CashierID > 0 {
		add("s.cashier_id = $%d", filter.CashierID)
	}
	if filter.DateFrom != nil {
		add("COALESCE(s.closed_at, s.opened_at) >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("COALESCE(s.closed_at, s.opened_at) < $%d", *filter.DateTo)
	}

	query := shiftSelect + " WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY COALESCE(s.closed_at, s.opened_at) DESC"

	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load report shifts: %w", err)
	}
	return collectShifts(rows)
}
