package services

import (
	"context"
	"time"

	"retail-backend/internal/models"
)

// TxRunner runs fn inside one transaction; the ctx passed to fn carries it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ScheduleStore interface {
	Create(ctx context.Context, entry *models.ScheduleEntry) error
	GetByID(ctx context.Context, id int) (*models.ScheduleEntry, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.ScheduleEntry, error)
	// ListCheckInCandidatesForUpdate locks the employee's confirmed, non-terminal
	// entries at the store on the given work dates.
	ListCheckInCandidatesForUpdate(ctx context.Context, employeeID, storeID int, workDates []time.Time) ([]*models.ScheduleEntry, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]*models.ScheduleEntry, error)
	// SetAttendance moves attendance from -> to; false when the row was not in from.
	SetAttendance(ctx context.Context, id int, from, to models.AttendanceStatus) (bool, error)
	Reassign(ctx context.Context, id, employeeID int) error
	Cancel(ctx context.Context, id int) (bool, error)
	// MarkAbsent flags up to limit lapsed not_checked_in entries whose window
	// ended before cutoff (store-local wall time).
	MarkAbsent(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type TemplateStore interface {
	List(ctx context.Context) ([]*models.ShiftTemplate, error)
	GetByID(ctx context.Context, id int) (*models.ShiftTemplate, error)
}

type ShiftStore interface {
	// LockCashier serializes check-ins of one cashier at one store until commit.
	LockCashier(ctx context.Context, cashierID, storeID int) error
	Create(ctx context.Context, shift *models.Shift) error
	GetByID(ctx context.Context, id int) (*models.Shift, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.Shift, error)
	GetOpen(ctx context.Context, cashierID, storeID int) (*models.Shift, error)
	// Close persists the closing fields; false when the shift was no longer opened.
	Close(ctx context.Context, shift *models.Shift) (bool, error)
	List(ctx context.Context, filter models.ShiftFilter) ([]*models.Shift, error)
	ListForReport(ctx context.Context, filter models.ShiftReportFilter) ([]*models.Shift, error)
}

type CashMovementStore interface {
	Create(ctx context.Context, m *models.CashMovement) error
	ListByShift(ctx context.Context, shiftID int) ([]*models.CashMovement, error)
}

// PaymentReader is the read contract with the checkout side.
type PaymentReader interface {
	ShiftTotals(ctx context.Context, shiftID int) (models.PaymentTotals, error)
	TotalsByShift(ctx context.Context, shiftIDs []int) (map[int]models.PaymentTotals, error)
}

type ChangeRequestStore interface {
	Create(ctx context.Context, req *models.ShiftChangeRequest) error
	GetByID(ctx context.Context, id int) (*models.ShiftChangeRequest, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.ShiftChangeRequest, error)
	List(ctx context.Context, filter models.ShiftChangeFilter) ([]*models.ShiftChangeRequest, error)
	// Settle moves a pending request to a terminal status; false when it was not pending.
	Settle(ctx context.Context, req *models.ShiftChangeRequest) (bool, error)
	CountPending(ctx context.Context, storeID int) (int, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
