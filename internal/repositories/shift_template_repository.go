package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"retail-backend/internal/db"
	"retail-backend/internal/models"
)

type ShiftTemplateRepository struct {
	DB *pgxpool.Pool
}

func NewShiftTemplateRepository(pool *pgxpool.Pool) *ShiftTemplateRepository {
	return &ShiftTemplateRepository{DB: pool}
}

func (r *ShiftTemplateRepository) List(ctx context.Context) ([]*models.ShiftTemplate, error) {
	rows, err := db.Conn(ctx, r.DB).Query(ctx,
		`SELECT id, name, start_time, end_time FROM shift_templates ORDER BY start_time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.ShiftTemplate
	for rows.Next() {
		t := &models.ShiftTemplate{}
		var start, end pgtype.Time
		if err := rows.Scan(&t.ID, &t.Name, &start, &end); err != nil {
			return nil, err
		}
		t.StartTime, t.EndTime = timeOfDay(start), timeOfDay(end)
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *ShiftTemplateRepository) GetByID(ctx context.Context, id int) (*models.ShiftTemplate, error) {
	t := &models.ShiftTemplate{}
	var start, end pgtype.Time
	err := db.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT id, name, start_time, end_time FROM shift_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &start, &end)
	if err != nil {
		return nil, err
	}
	t.StartTime, t.EndTime = timeOfDay(start), timeOfDay(end)
	return t, nil
}
