package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retail-backend/internal/cache"
	"retail-backend/internal/metrics"
	"retail-backend/internal/models"
	"retail-backend/internal/timeutil"
)

// ShiftService owns the check-in / check-out lifecycle and the cash ledger.
// It is the only writer of shift status and of the checked_in / checked_out
// attendance transitions.
type ShiftService struct {
	ScheduleRepo ScheduleStore
	ShiftRepo    ShiftStore
	CashRepo     CashMovementStore
	PaymentRepo  PaymentReader
	Tx           TxRunner
	Clock        timeutil.Clock
	Grace        time.Duration
}

func NewShiftService(
	scheduleRepo ScheduleStore,
	shiftRepo ShiftStore,
	cashRepo CashMovementStore,
	paymentRepo PaymentReader,
	tx TxRunner,
	clock timeutil.Clock,
	graceMinutes int,
) *ShiftService {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &ShiftService{
		ScheduleRepo: scheduleRepo,
		ShiftRepo:    shiftRepo,
		CashRepo:     cashRepo,
		PaymentRepo:  paymentRepo,
		Tx:           tx,
		Clock:        clock,
		Grace:        time.Duration(graceMinutes) * time.Minute,
	}
}

// CheckIn opens a shift for the cashier at the store, bound to the schedule
// entry that authorizes it.
func (s *ShiftService) CheckIn(ctx context.Context, cashierID int, req *models.CheckInRequest) (*models.Shift, error) {
	if req.StoreID <= 0 {
		return nil, ErrValidation("store_id is required")
	}
	if req.OpeningCash.IsNegative() {
		return nil, ErrValidation("opening_cash cannot be negative")
	}

	now := s.Clock.Now()
	var shift *models.Shift

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.ShiftRepo.LockCashier(ctx, cashierID, req.StoreID); err != nil {
			return err
		}

		if _, err := s.ShiftRepo.GetOpen(ctx, cashierID, req.StoreID); err == nil {
			return ErrConflict("you already have an opened shift at this store")
		} else if !isNoRows(err) {
			return err
		}

		entry, err := s.resolveSchedule(ctx, cashierID, req.StoreID, req.ScheduleID, now)
		if err != nil {
			return err
		}

		note := strings.TrimSpace(req.Note)
		late := LateMinutes(entry.Template, entry.WorkDate, now, s.Grace)
		if late > 0 && note == "" {
			return ErrNoteRequired(fmt.Sprintf("you are checking in %d minute(s) late, please provide a note", late))
		}

		scheduleID := entry.ID
		shift = &models.Shift{
			CashierID:   cashierID,
			StoreID:     req.StoreID,
			ScheduleID:  &scheduleID,
			OpeningCash: req.OpeningCash,
			LateMinutes: &late,
			Note:        note,
			OpenedAt:    now,
		}
		if err := s.ShiftRepo.Create(ctx, shift); err != nil {
			return err
		}

		if entry.AttendanceStatus == models.AttendanceNotCheckedIn {
			ok, err := s.ScheduleRepo.SetAttendance(ctx, entry.ID, models.AttendanceNotCheckedIn, models.AttendanceCheckedIn)
			if err != nil {
				return err
			}
			if !ok {
				return ErrConflict("schedule attendance changed concurrently, please retry")
			}
		}
		return nil
	})

	metrics.ShiftEventsTotal.WithLabelValues("check_in", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, classifyStoreError(err, "you already have an opened shift at this store")
	}

	if shift.LateMinutes != nil && *shift.LateMinutes > 0 {
		metrics.LateCheckInsTotal.Inc()
	}
	log.Printf("[ShiftService] Cashier %d checked in at store %d (shift %d, schedule %d, late %d min)",
		cashierID, req.StoreID, shift.ID, *shift.ScheduleID, *shift.LateMinutes)
	cache.InvalidateStoreSchedules(ctx, req.StoreID)

	return shift.WithDiscrepancy(), nil
}

// resolveSchedule locks and returns the entry authorizing a check-in.
func (s *ShiftService) resolveSchedule(ctx context.Context, cashierID, storeID int, scheduleID *int, now time.Time) (*models.ScheduleEntry, error) {
	today := timeutil.DateOf(now)

	if scheduleID != nil {
		entry, err := s.ScheduleRepo.GetByIDForUpdate(ctx, *scheduleID)
		if isNoRows(err) {
			return nil, ErrNotFound("schedule not found")
		}
		if err != nil {
			return nil, err
		}
		if entry.EmployeeID != cashierID || entry.StoreID != storeID {
			return nil, ErrValidation("this schedule is not assigned to you at this store")
		}
		if !entry.IsActive() {
			return nil, ErrValidation("this schedule has been cancelled")
		}
		if entry.AttendanceStatus.IsTerminal() {
			return nil, ErrValidation(fmt.Sprintf("this schedule is already %s", entry.AttendanceStatus))
		}
		if pickCheckInSchedule([]*models.ScheduleEntry{entry}, now) == nil {
			return nil, ErrValidation("this schedule is not for today")
		}
		return entry, nil
	}

	// Yesterday is included so an overnight shift can still be opened after midnight.
	dates := []time.Time{today.AddDate(0, 0, -1), today}
	candidates, err := s.ScheduleRepo.ListCheckInCandidatesForUpdate(ctx, cashierID, storeID, dates)
	if err != nil {
		return nil, err
	}

	entry := pickCheckInSchedule(candidates, now)
	if entry == nil {
		return nil, ErrNoScheduleAssigned()
	}
	return entry, nil
}

// CheckOut closes an opened shift and writes checked_out on its schedule entry.
func (s *ShiftService) CheckOut(ctx context.Context, actor Actor, shiftID int, req *models.CheckOutRequest) (*models.Shift, error) {
	if req.ClosingCash.IsNegative() {
		return nil, ErrValidation("closing_cash cannot be negative")
	}

	now := s.Clock.Now()
	var shift *models.Shift

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		shift, err = s.ShiftRepo.GetByIDForUpdate(ctx, shiftID)
		if isNoRows(err) {
			return ErrNotFound("shift not found")
		}
		if err != nil {
			return err
		}
		if shift.CashierID != actor.UserID && !actor.IsManager() {
			return ErrNotOwner("only the shift's cashier or a manager can close it")
		}
		if shift.Status != models.ShiftOpened {
			return ErrAlreadyClosed()
		}

		var entry *models.ScheduleEntry
		if shift.ScheduleID != nil {
			entry, err = s.ScheduleRepo.GetByIDForUpdate(ctx, *shift.ScheduleID)
			if err != nil && !isNoRows(err) {
				return err
			}
		}

		note := strings.TrimSpace(req.Note)
		if entry != nil && entry.Template != nil {
			early := EarlyMinutes(entry.Template, entry.WorkDate, now, s.Grace)
			if early > 0 && note == "" {
				return ErrNoteRequired(fmt.Sprintf("you are checking out %d minute(s) early, please provide a note", early))
			}
			shift.EarlyMinutes = &early
		}

		totals, err := s.PaymentRepo.ShiftTotals(ctx, shift.ID)
		if err != nil {
			return err
		}

		closing := req.ClosingCash
		shift.ClosingCash = &closing
		shift.CashSalesTotal = totals.Cash
		shift.Note = MergeNotes(shift.Note, note)
		shift.ClosedAt = &now
		shift.Status = models.ShiftClosed

		ok, err := s.ShiftRepo.Close(ctx, shift)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyClosed()
		}

		if entry != nil {
			if !entry.AttendanceStatus.CanTransitionTo(models.AttendanceCheckedOut) {
				log.Printf("[ShiftService] Schedule %d is %s, leaving attendance unchanged on close of shift %d",
					entry.ID, entry.AttendanceStatus, shift.ID)
				return nil
			}
			ok, err := s.ScheduleRepo.SetAttendance(ctx, entry.ID, models.AttendanceCheckedIn, models.AttendanceCheckedOut)
			if err != nil {
				return err
			}
			if !ok {
				log.Printf("[ShiftService] Schedule %d left %s by a concurrent update, attendance unchanged on close of shift %d",
					entry.ID, entry.AttendanceStatus, shift.ID)
			}
		}
		return nil
	})

	metrics.ShiftEventsTotal.WithLabelValues("check_out", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, classifyStoreError(err, "shift is already closed")
	}

	shift.WithDiscrepancy()
	log.Printf("[ShiftService] Shift %d closed by user %d (discrepancy %s)", shift.ID, actor.UserID, shift.Discrepancy.StringFixed(2))
	cache.InvalidateStoreSchedules(ctx, shift.StoreID)

	return shift, nil
}

// AddCashMovement appends a cash in/out row to an opened shift.
func (s *ShiftService) AddCashMovement(ctx context.Context, actor Actor, shiftID int, req *models.CashMovementRequest) (*models.CashMovement, error) {
	if req.Type != models.CashIn && req.Type != models.CashOut {
		return nil, ErrValidation("type must be 'in' or 'out'")
	}
	if !req.Amount.IsPositive() {
		return nil, ErrValidation("amount must be greater than zero")
	}

	movement := &models.CashMovement{
		ShiftID:   shiftID,
		Type:      req.Type,
		Amount:    req.Amount,
		Reason:    req.Reason,
		CreatedBy: &actor.UserID,
		CreatedAt: s.Clock.Now(),
	}

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		shift, err := s.ShiftRepo.GetByIDForUpdate(ctx, shiftID)
		if isNoRows(err) {
			return ErrNotFound("shift not found")
		}
		if err != nil {
			return err
		}
		if shift.CashierID != actor.UserID && !actor.IsManager() {
			return ErrNotOwner("only the shift's cashier or a manager can move cash")
		}
		if shift.Status != models.ShiftOpened {
			return ErrShiftClosed()
		}
		return s.CashRepo.Create(ctx, movement)
	})

	metrics.ShiftEventsTotal.WithLabelValues("cash_movement", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, classifyStoreError(err, "cash movement conflict")
	}
	return movement, nil
}

// GetOpenShift returns the cashier's opened shift at the store, or nil.
func (s *ShiftService) GetOpenShift(ctx context.Context, cashierID, storeID int) (*models.Shift, error) {
	shift, err := s.ShiftRepo.GetOpen(ctx, cashierID, storeID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(err, "")
	}

	// cash_sales_total is only written at close; report the running figure
	totals, err := s.PaymentRepo.ShiftTotals(ctx, shift.ID)
	if err != nil {
		return nil, classifyStoreError(err, "")
	}
	shift.CashSalesTotal = totals.Cash
	return shift.WithDiscrepancy(), nil
}

// GetShift returns a shift with its cash ledger and the discrepancy figures
// computed from the current rows.
func (s *ShiftService) GetShift(ctx context.Context, id int) (*models.ShiftDetail, error) {
	shift, err := s.ShiftRepo.GetByID(ctx, id)
	if isNoRows(err) {
		return nil, ErrNotFound("shift not found")
	}
	if err != nil {
		return nil, err
	}

	movements, err := s.CashRepo.ListByShift(ctx, id)
	if err != nil {
		return nil, err
	}

	if shift.Status == models.ShiftOpened {
		// Running figure for an open shift
		totals, err := s.PaymentRepo.ShiftTotals(ctx, id)
		if err != nil {
			return nil, err
		}
		shift.CashSalesTotal = totals.Cash
	}

	return BuildShiftDetail(shift, movements), nil
}

// BuildShiftDetail derives the reconciliation figures for a shift.
func BuildShiftDetail(shift *models.Shift, movements []*models.CashMovement) *models.ShiftDetail {
	net := decimal.Zero
	for _, m := range movements {
		net = net.Add(m.Signed())
	}

	detail := &models.ShiftDetail{
		Shift:           shift.WithDiscrepancy(),
		CashMovements:   movements,
		NetCashMovement: net,
		ExpectedCash:    shift.OpeningCash.Add(shift.CashSalesTotal).Add(net),
	}
	if detail.CashMovements == nil {
		detail.CashMovements = []*models.CashMovement{}
	}
	if shift.ClosingCash != nil {
		adjusted := shift.ClosingCash.Sub(detail.ExpectedCash)
		detail.AdjustedDiscrepancy = &adjusted
	}
	return detail
}

func (s *ShiftService) ListShifts(ctx context.Context, filter models.ShiftFilter) ([]*models.Shift, error) {
	shifts, err := s.ShiftRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, sh := range shifts {
		sh.WithDiscrepancy()
	}
	if shifts == nil {
		shifts = []*models.Shift{}
	}
	return shifts, nil
}

func (s *ShiftService) ListCashMovements(ctx context.Context, shiftID int) ([]*models.CashMovement, error) {
	if _, err := s.ShiftRepo.GetByID(ctx, shiftID); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound("shift not found")
		}
		return nil, err
	}
	return s.CashRepo.ListByShift(ctx, shiftID)
}
