package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"retail-backend/internal/db"
	"retail-backend/internal/models"
)

type ShiftChangeRequestRepository struct {
	DB *pgxpool.Pool
}

func NewShiftChangeRequestRepository(pool *pgxpool.Pool) *ShiftChangeRequestRepository {
	return &ShiftChangeRequestRepository{DB: pool}
}

const changeRequestSelect = `
	SELECT r.id, r.from_user_id, COALESCE(fu.name, ''), r.from_schedule_id, r.store_id,
	       r.request_type, r.to_schedule_id, r.to_user_id, COALESCE(tu.name, ''),
	       r.to_work_date, r.to_shift_template_id, COALESCE(r.reason, ''),
	       r.status, COALESCE(r.review_notes, ''), r.reviewed_by, r.requested_at, r.reviewed_at
	FROM shift_change_requests r
	LEFT JOIN users fu ON fu.id = r.from_user_id
	LEFT JOIN users tu ON tu.id = r.to_user_id
`

func scanChangeRequest(row pgx.Row) (*models.ShiftChangeRequest, error) {
	req := &models.ShiftChangeRequest{}
	err := row.Scan(
		&req.ID, &req.FromUserID, &req.FromUserName, &req.FromScheduleID, &req.StoreID,
		&req.RequestType, &req.ToScheduleID, &req.ToUserID, &req.ToUserName,
		&req.ToWorkDate, &req.ToShiftTemplateID, &req.Reason,
		&req.Status, &req.ReviewNotes, &req.ReviewedBy, &req.RequestedAt, &req.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *ShiftChangeRequestRepository) Create(ctx context.Context, req *models.ShiftChangeRequest) error {
	query := `
		INSERT INTO shift_change_requests (
			from_user_id, from_schedule_id, store_id, request_type,
			to_schedule_id, to_user_id, to_work_date, to_shift_template_id, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING id, status, requested_at
	`

	err := db.Conn(ctx, r.DB).QueryRow(ctx, query,
		req.FromUserID, req.FromScheduleID, req.StoreID, req.RequestType,
		req.ToScheduleID, req.ToUserID, req.ToWorkDate, req.ToShiftTemplateID, req.Reason,
	).Scan(&req.ID, &req.Status, &req.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create shift change request: %w", err)
	}
	return nil
}

func (r *ShiftChangeRequestRepository) GetByID(ctx context.Context, id int) (*models.ShiftChangeRequest, error) {
	return scanChangeRequest(db.Conn(ctx, r.DB).QueryRow(ctx, changeRequestSelect+` WHERE r.id = $1`, id))
}

func (r *ShiftChangeRequestRepository) GetByIDForUpdate(ctx context.Context, id int) (*models.ShiftChangeRequest, error) {
	return scanChangeRequest(db.Conn(ctx, r.DB).QueryRow(ctx, changeRequestSelect+` WHERE r.id = $1 FOR UPDATE OF r`, id))
}

func (r *ShiftChangeRequestRepository) List(ctx context.Context, filter models.ShiftChangeFilter) ([]*models.ShiftChangeRequest, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StoreID > 0 {
		add("r.store_id = $%d", filter.StoreID)
	}
	if filter.Status != "" {
		add("r.status = $%d", filter.Status)
	}
	if filter.FromUserID > 0 {
		add("r.from_user_id = $%d", filter.FromUserID)
	}

	query := changeRequestSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.requested_at DESC"

	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift change requests: %w", err)
	}
	defer rows.Close()

	requests := []*models.ShiftChangeRequest{}
	for rows.Next() {
		req, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Settle writes the terminal status (and the resolved target, if any) while the
// request is still pending
func (r *ShiftChangeRequestRepository) Settle(ctx context.Context, req *models.ShiftChangeRequest) (bool, error) {
	query := `
		UPDATE shift_change_requests
		SET status = $2, review_notes = NULLIF($3, ''), reviewed_by = $4, reviewed_at = $5,
		    to_user_id = $6, to_schedule_id = $7
		WHERE id = $1 AND status = 'pending'
	`

	result, err := db.Conn(ctx, r.DB).Exec(ctx, query,
		req.ID, req.Status, req.ReviewNotes, req.ReviewedBy, req.ReviewedAt,
		req.ToUserID, req.ToScheduleID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to settle shift change request: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *ShiftChangeRequestRepository) CountPending(ctx context.Context, storeID int) (int, error) {
	var count int
	err := db.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT COUNT(*) FROM shift_change_requests WHERE store_id = $1 AND status = 'pending'`,
		storeID,
	).Scan(&count)
	return count, err
}
