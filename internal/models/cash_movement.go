package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashMovementType string

const (
	CashIn  CashMovementType = "in"
	CashOut CashMovementType = "out"
)

// CashMovement is an append-only cash adjustment against an open shift.
type CashMovement struct {
	ID        int              `json:"id"`
	ShiftID   int              `json:"shift_id"`
	Type      CashMovementType `json:"type"`
	Amount    decimal.Decimal  `json:"amount"`
	Reason    string           `json:"reason"`
	CreatedBy *int             `json:"created_by,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Signed returns the amount as a positive (in) or negative (out) delta.
func (m *CashMovement) Signed() decimal.Decimal {
	if m.Type == CashOut {
		return m.Amount.Neg()
	}
	return m.Amount
}

type CashMovementRequest struct {
	Type   CashMovementType `json:"type"`
	Amount decimal.Decimal  `json:"amount"`
	Reason string           `json:"reason"`
}
