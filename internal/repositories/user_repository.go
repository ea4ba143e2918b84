package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"retail-backend/internal/models"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleEmployee
	}
	return r.DB.QueryRow(ctx,
		`INSERT INTO users(name, email, password_hash, role, store_id, is_active)
         VALUES($1, $2, $3, $4, $5, TRUE)
         RETURNING id, is_active, created_at`,
		u.Name, u.Email, u.PasswordHash, u.Role, u.StoreID,
	).Scan(&u.ID, &u.IsActive, &u.CreatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, store_id, is_active, created_at
         FROM users WHERE id=$1`, id)

	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.StoreID, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, store_id, is_active, created_at
         FROM users WHERE LOWER(email)=LOWER($1)`, email)

	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.StoreID, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
