package services

import (
	"context"
	"log"
	"strings"

	"retail-backend/internal/auth"
	"retail-backend/internal/models"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

type UserService struct {
	UserRepo UserStore
	Tokens   TokenIssuer
}

func NewUserService(userRepo UserStore, tokens TokenIssuer) *UserService {
	return &UserService{UserRepo: userRepo, Tokens: tokens}
}

// Login checks the password and issues a token.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrValidation("email and password are required")
	}

	user, err := s.UserRepo.GetByEmail(ctx, email)
	if isNoRows(err) {
		return nil, ErrInvalidCredentials()
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		log.Printf("[UserService] Failed login for %s", email)
		return nil, ErrInvalidCredentials()
	}
	if !user.IsActive {
		return nil, ErrForbidden("account suspended, please contact an administrator")
	}
	if auth.NeedsRehash(user.PasswordHash) {
		log.Printf("[UserService] User %d has a password hash below cost %d, reset it on next password change", user.ID, auth.PasswordCost)
	}

	token, err := s.Tokens.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// GetUser resolves an employee id for display and permission checks.
func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.UserRepo.GetByID(ctx, id)
	if isNoRows(err) {
		return nil, ErrNotFound("user not found")
	}
	return user, err
}
