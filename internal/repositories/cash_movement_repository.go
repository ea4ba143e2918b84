package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"retail-backend/internal/db"
	"retail-backend/internal/models"
)

type CashMovementRepository struct {
	DB *pgxpool.Pool
}

func NewCashMovementRepository(pool *pgxpool.Pool) *CashMovementRepository {
	return &CashMovementRepository{DB: pool}
}

func (r *CashMovementRepository) Create(ctx context.Context, m *models.CashMovement) error {
	err := db.Conn(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO cash_movements (shift_id, type, amount, reason, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.ShiftID, m.Type, m.Amount, m.Reason, m.CreatedBy).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cash movement: %w", err)
	}
	return nil
}

func (r *CashMovementRepository) ListByShift(ctx context.Context, shiftID int) ([]*models.CashMovement, error) {
	rows, err := db.Conn(ctx, r.DB).Query(ctx, `
		SELECT id, shift_id, type, amount, reason, created_by, created_at
		FROM cash_movements
		WHERE shift_id = $1
		ORDER BY created_at, id
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := []*models.CashMovement{}
	for rows.Next() {
		m := &models.CashMovement{}
		if err := rows.Scan(&m.ID, &m.ShiftID, &m.Type, &m.Amount, &m.Reason, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
