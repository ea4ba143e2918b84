package services

import "retail-backend/internal/models"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int
	Role   string
}

func (a Actor) IsManager() bool {
	return a.Role == models.RoleManager || a.Role == models.RoleAdmin
}
