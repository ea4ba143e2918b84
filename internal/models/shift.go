package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShiftStatus string

const (
	ShiftOpened ShiftStatus = "opened"
	ShiftClosed ShiftStatus = "closed"
)

// NoteSeparator joins the check-in and check-out notes of one shift.
const NoteSeparator = " | "

// Shift is one cash-register work session.
type Shift struct {
	ID             int              `json:"id"`
	CashierID      int              `json:"cashier_id"`
	CashierName    string           `json:"cashier_name,omitempty"`
	StoreID        int              `json:"store_id"`
	ScheduleID     *int             `json:"schedule_id,omitempty"`
	Status         ShiftStatus      `json:"status"`
	OpeningCash    decimal.Decimal  `json:"opening_cash"`
	ClosingCash    *decimal.Decimal `json:"closing_cash,omitempty"`
	CashSalesTotal decimal.Decimal  `json:"cash_sales_total"`
	LateMinutes    *int             `json:"late_minutes,omitempty"`
	EarlyMinutes   *int             `json:"early_minutes,omitempty"`
	Note           string           `json:"note,omitempty"`
	OpenedAt       time.Time        `json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`

	// Computed at read time, never stored
	Discrepancy *decimal.Decimal `json:"discrepancy,omitempty"`
}

// ComputeDiscrepancy returns closing - (opening + cash sales), or nil while the shift is open.
func (s *Shift) ComputeDiscrepancy() *decimal.Decimal {
	if s.ClosingCash == nil {
		return nil
	}
	d := s.ClosingCash.Sub(s.OpeningCash.Add(s.CashSalesTotal))
	return &d
}

// WithDiscrepancy fills the computed discrepancy field.
func (s *Shift) WithDiscrepancy() *Shift {
	s.Discrepancy = s.ComputeDiscrepancy()
	return s
}

// ShiftDetail is a shift together with its cash ledger.
type ShiftDetail struct {
	*Shift
	CashMovements       []*CashMovement  `json:"cash_movements"`
	NetCashMovement     decimal.Decimal  `json:"net_cash_movement"`
	ExpectedCash        decimal.Decimal  `json:"expected_cash"`
	AdjustedDiscrepancy *decimal.Decimal `json:"adjusted_discrepancy,omitempty"`
}

type CheckInRequest struct {
	StoreID     int             `json:"store_id"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
	Note        string          `json:"note,omitempty"`
	ScheduleID  *int            `json:"schedule_id,omitempty"`
}

type CheckOutRequest struct {
	ClosingCash decimal.Decimal `json:"closing_cash"`
	Note        string          `json:"note,omitempty"`
}

type ShiftFilter struct {
	StoreID   int
	CashierID int
	Status    ShiftStatus
	Limit     int
}
