package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"retail-backend/internal/db"
	"retail-backend/internal/models"
)

// PaymentRepository reads completed payments posted by checkout.
type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: pool}
}

const paymentTotalsQuery = `
	SELECT t.shift_id,
	       COALESCE(SUM(p.amount) FILTER (WHERE p.method = 'cash'), 0),
	       COALESCE(SUM(p.amount) FILTER (WHERE p.method <> 'cash'), 0),
	       COUNT(DISTINCT t.id)
	FROM transactions t
	LEFT JOIN payments p ON p.transaction_id = t.id AND p.status = 'completed'
	WHERE t.status = 'completed' AND t.shift_id = ANY($1::int[])
	GROUP BY t.shift_id
`

// ShiftTotals sums completed payments for one shift. No payments means zero totals.
func (r *PaymentRepository) ShiftTotals(ctx context.Context, shiftID int) (models.PaymentTotals, error) {
	totals, err := r.TotalsByShift(ctx, []int{shiftID})
	if err != nil {
		return models.PaymentTotals{}, err
	}
	return totals[shiftID], nil
}

func (r *PaymentRepository) TotalsByShift(ctx context.Context, shiftIDs []int) (map[int]models.PaymentTotals, error) {
	totals := make(map[int]models.PaymentTotals, len(shiftIDs))
	if len(shiftIDs) == 0 {
		return totals, nil
	}

	rows, err := db.Conn(ctx, r.DB).Query(ctx, paymentTotalsQuery, shiftIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var shiftID int
		var cash, nonCash decimal.Decimal
		var count int
		if err := rows.Scan(&shiftID, &cash, &nonCash, &count); err != nil {
			return nil, err
		}
		totals[shiftID] = models.PaymentTotals{Cash: cash, NonCash: nonCash, TransactionCount: count}
	}
	return totals, rows.Err()
}
