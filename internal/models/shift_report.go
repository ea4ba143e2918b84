package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShiftReportFilter bounds are instants; DateTo is exclusive.
type ShiftReportFilter struct {
	StoreID   int
	CashierID int
	DateFrom  *time.Time
	DateTo    *time.Time
}

// ShiftReportRow is one closed shift with its payment breakdown.
type ShiftReportRow struct {
	ShiftID          int             `json:"shift_id"`
	StoreID          int             `json:"store_id"`
	CashierID        int             `json:"cashier_id"`
	CashierName      string          `json:"cashier_name"`
	OpenedAt         time.Time       `json:"opened_at"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	OpeningCash      decimal.Decimal `json:"opening_cash"`
	ClosingCash      decimal.Decimal `json:"closing_cash"`
	CashSalesTotal   decimal.Decimal `json:"cash_sales_total"`
	BankTotal        decimal.Decimal `json:"bank_total"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TransactionCount int             `json:"transaction_count"`
	Discrepancy      decimal.Decimal `json:"discrepancy"`
	LateMinutes      *int            `json:"late_minutes,omitempty"`
	EarlyMinutes     *int            `json:"early_minutes,omitempty"`
}

type ShiftReportSummary struct {
	TotalShifts          int             `json:"total_shifts"`
	TotalOpeningCash     decimal.Decimal `json:"total_opening_cash"`
	TotalClosingCash     decimal.Decimal `json:"total_closing_cash"`
	TotalCashSales       decimal.Decimal `json:"total_cash_sales"`
	TotalBankSales       decimal.Decimal `json:"total_bank_sales"`
	TotalSales           decimal.Decimal `json:"total_sales"`
	TotalDiscrepancy     decimal.Decimal `json:"total_discrepancy"`
	AverageDiscrepancy   decimal.Decimal `json:"average_discrepancy"`
	ShiftsWithDifference int             `json:"shifts_with_discrepancy"`
}

type ShiftReport struct {
	Rows    []*ShiftReportRow  `json:"shifts"`
	Summary ShiftReportSummary `json:"summary"`
}

// PaymentTotals is the read contract with the checkout side for one shift.
type PaymentTotals struct {
	Cash             decimal.Decimal
	NonCash          decimal.Decimal
	TransactionCount int
}
