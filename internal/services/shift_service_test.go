package services

import (
	"context"
	"sync"
	"testing"

	"retail-backend/internal/models"
)

const (
	storeA   = 1
	cashier  = 10
	cashier2 = 11
	manager  = 20
)

type shiftFixture struct {
	db    *memDB
	clock *manualClock
	svc   *ShiftService
}

func newShiftFixture(t *testing.T) *shiftFixture {
	t.Helper()
	db := newMemDB()
	db.addTemplate(2, "Day", "08:00", "16:00")
	db.addTemplate(3, "Evening", "14:00", "22:00")
	db.addTemplate(4, "Night", "22:00", "06:00")
	db.addUser(cashier, models.RoleCashier)
	db.addUser(cashier2, models.RoleCashier)
	db.addUser(manager, models.RoleManager)

	clock := newManualClock(local(2026, 3, 10, 8, 0))
	svc := NewShiftService(memSchedules{db}, memShifts{db}, memCash{db}, memPayments{db}, db, clock, DefaultGraceMinutes)
	return &shiftFixture{db: db, clock: clock, svc: svc}
}

func (f *shiftFixture) checkIn(t *testing.T, note string) *models.Shift {
	t.Helper()
	shift, err := f.svc.CheckIn(context.Background(), cashier, &models.CheckInRequest{
		StoreID: storeA, OpeningCash: dec("100.00"), Note: note,
	})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	return shift
}

func TestCheckInOnTime(t *testing.T) {
	f := newShiftFixture(t)
	entry := f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	f.clock.Set(local(2026, 3, 10, 8, 3))

	shift := f.checkIn(t, "")

	if shift.Status != models.ShiftOpened {
		t.Errorf("status = %s, want opened", shift.Status)
	}
	if shift.ScheduleID == nil || *shift.ScheduleID != entry.ID {
		t.Errorf("schedule_id = %v, want %d", shift.ScheduleID, entry.ID)
	}
	if shift.LateMinutes == nil || *shift.LateMinutes != 0 {
		t.Errorf("late_minutes = %v, want 0", shift.LateMinutes)
	}
	if shift.Discrepancy != nil {
		t.Errorf("open shift should have no discrepancy")
	}
	if got := f.db.schedule(entry.ID).AttendanceStatus; got != models.AttendanceCheckedIn {
		t.Errorf("attendance = %s, want checked_in", got)
	}
}

func TestCheckInLateRequiresNote(t *testing.T) {
	f := newShiftFixture(t)
	entry := f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	f.clock.Set(local(2026, 3, 10, 8, 7))

	_, err := f.svc.CheckIn(context.Background(), cashier, &models.CheckInRequest{StoreID: storeA, OpeningCash: dec("100")})
	if !IsKind(err, KindValidation) || err.(*DomainError).Code != "NOTE_REQUIRED" {
		t.Fatalf("err = %v, want NOTE_REQUIRED", err)
	}
	if f.db.openShifts(cashier, storeA) != 0 {
		t.Error("no shift should be created without a note")
	}
	if got := f.db.schedule(entry.ID).AttendanceStatus; got != models.AttendanceNotCheckedIn {
		t.Errorf("attendance = %s, want unchanged", got)
	}

	// Whitespace is not a note
	_, err = f.svc.CheckIn(context.Background(), cashier, &models.CheckInRequest{StoreID: storeA, OpeningCash: dec("100"), Note: "   "})
	if !IsKind(err, KindValidation) || err.(*DomainError).Code != "NOTE_REQUIRED" {
		t.Fatalf("blank note: err = %v, want NOTE_REQUIRED", err)
	}
	if f.db.openShifts(cashier, storeA) != 0 {
		t.Error("no shift should be created with a blank note")
	}

	shift := f.checkIn(t, "  bus was late  ")
	if *shift.LateMinutes != 2 {
		t.Errorf("late_minutes = %d, want 2", *shift.LateMinutes)
	}
	if shift.Note != "bus was late" {
		t.Errorf("note = %q", shift.Note)
	}
}

func TestCheckInWithoutSchedule(t *testing.T) {
	f := newShiftFixture(t)
	f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 11))
	f.db.addSchedule(cashier, 2, 2, date(2026, 3, 10))

	_, err := f.svc.CheckIn(context.Background(), cashier, &models.CheckInRequest{StoreID: storeA, OpeningCash: dec("0")})
	de, ok := err.(*DomainError)
	if !ok || de.Code != "NO_SCHEDULE_ASSIGNED" {
		t.Fatalf("err = %v, want NO_SCHEDULE_ASSIGNED", err)
	}
}

func TestCheckInRejectsSecondOpenShift(t *testing.T) {
	f := newShiftFixture(t)
	f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	f.db.addSchedule(cashier, storeA, 3, date(2026, 3, 10))
	f.checkIn(t, "")

	_, err := f.svc.CheckIn(context.Background(), cashier, &models.CheckInRequest{StoreID: storeA, OpeningCash: dec("0")})
	if !IsKind(err, KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestCheckInConcurrent(t *testing.T) {
	f := newShiftFixture(t)
	f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CheckIn(context.Background(), cashier, &models.CheckInRequest{StoreID: storeA, OpeningCash: dec("50")})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !IsKind(err, KindConflict):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d check-ins succeeded, want exactly 1", succeeded)
	}
	if got := f.db.openShifts(cashier, storeA); got != 1 {
		t.Fatalf("%d opened shifts, want 1", got)
	}
}

func TestCheckInOvernightAfterMidnight(t *testing.T) {
	f := newShiftFixture(t)
	entry := f.db.addSchedule(cashier, storeA, 4, date(2026, 3, 9))
	f.clock.Set(local(2026, 3, 10, 0, 30))

	shift := f.checkIn(t, "traffic")
	if *shift.ScheduleID != entry.ID {
		t.Fatalf("schedule_id = %d, want %d", *shift.ScheduleID, entry.ID)
	}
	if *shift.LateMinutes != 145 {
		t.Errorf("late_minutes = %d, want 145", *shift.LateMinutes)
	}
}

func TestCheckInExplicitScheduleMustBeOwned(t *testing.T) {
	f := newShiftFixture(t)
	other := f.db.addSchedule(cashier2, storeA, 2, date(2026, 3, 10))

	_, err := f.svc.CheckIn(context.Background(), cashier, &models.CheckInRequest{
		StoreID: storeA, OpeningCash: dec("0"), ScheduleID: &other.ID,
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestCheckOut(t *testing.T) {
	f := newShiftFixture(t)
	entry := f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	f.clock.Set(local(2026, 3, 10, 8, 9))
	shift := f.checkIn(t, "bus was late")

	f.db.payments[shift.ID] = models.PaymentTotals{Cash: dec("250.50"), NonCash: dec("99.99"), TransactionCount: 4}
	f.clock.Set(local(2026, 3, 10, 16, 2))

	closed, err := f.svc.CheckOut(context.Background(), Actor{UserID: cashier, Role: models.RoleCashier}, shift.ID,
		&models.CheckOutRequest{ClosingCash: dec("345.50"), Note: "all good"})
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}

	if closed.Status != models.ShiftClosed || closed.ClosedAt == nil {
		t.Fatalf("shift not closed: %+v", closed)
	}
	if !closed.CashSalesTotal.Equal(dec("250.50")) {
		t.Errorf("cash_sales_total = %s, want 250.50", closed.CashSalesTotal)
	}
	if closed.Discrepancy == nil || !closed.Discrepancy.Equal(dec("-5.00")) {
		t.Errorf("discrepancy = %v, want -5.00", closed.Discrepancy)
	}
	if closed.Note != "bus was late | all good" {
		t.Errorf("note = %q", closed.Note)
	}
	if closed.EarlyMinutes == nil || *closed.EarlyMinutes != 0 {
		t.Errorf("early_minutes = %v, want 0", closed.EarlyMinutes)
	}
	if got := f.db.schedule(entry.ID).AttendanceStatus; got != models.AttendanceCheckedOut {
		t.Errorf("attendance = %s, want checked_out", got)
	}

	// Discrepancy is recomputed from stored values on every read
	for i := 0; i < 2; i++ {
		detail, err := f.svc.GetShift(context.Background(), shift.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !detail.Discrepancy.Equal(dec("-5.00")) {
			t.Fatalf("read %d: discrepancy = %s", i, detail.Discrepancy)
		}
	}
}

func TestCheckOutEarlyRequiresNote(t *testing.T) {
	f := newShiftFixture(t)
	f.db.addSchedule(cashier, storeA, 3, date(2026, 3, 10))
	f.clock.Set(local(2026, 3, 10, 14, 0))
	shift := f.checkIn(t, "")

	f.clock.Set(local(2026, 3, 10, 21, 52))
	actor := Actor{UserID: cashier, Role: models.RoleCashier}

	_, err := f.svc.CheckOut(context.Background(), actor, shift.ID, &models.CheckOutRequest{ClosingCash: dec("100")})
	if de, ok := err.(*DomainError); !ok || de.Code != "NOTE_REQUIRED" {
		t.Fatalf("err = %v, want NOTE_REQUIRED", err)
	}

	_, err = f.svc.CheckOut(context.Background(), actor, shift.ID, &models.CheckOutRequest{ClosingCash: dec("100"), Note: " \t"})
	if de, ok := err.(*DomainError); !ok || de.Code != "NOTE_REQUIRED" {
		t.Fatalf("blank note: err = %v, want NOTE_REQUIRED", err)
	}
	if got := f.db.shifts[shift.ID].Status; got != models.ShiftOpened {
		t.Fatalf("status = %s, shift must stay opened", got)
	}

	closed, err := f.svc.CheckOut(context.Background(), actor, shift.ID, &models.CheckOutRequest{ClosingCash: dec("100"), Note: "feeling ill"})
	if err != nil {
		t.Fatal(err)
	}
	if *closed.EarlyMinutes != 3 {
		t.Errorf("early_minutes = %d, want 3", *closed.EarlyMinutes)
	}
}

func TestGetOpenShiftReportsRunningCashSales(t *testing.T) {
	f := newShiftFixture(t)
	f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	shift := f.checkIn(t, "")

	open, err := f.svc.GetOpenShift(context.Background(), cashier, storeA)
	if err != nil || open == nil {
		t.Fatalf("GetOpenShift = %v, %v", open, err)
	}
	if !open.CashSalesTotal.IsZero() {
		t.Errorf("cash_sales_total = %s, want 0 before any sale", open.CashSalesTotal)
	}

	f.db.payments[shift.ID] = models.PaymentTotals{Cash: dec("120.25"), NonCash: dec("40"), TransactionCount: 3}

	open, err = f.svc.GetOpenShift(context.Background(), cashier, storeA)
	if err != nil {
		t.Fatal(err)
	}
	if !open.CashSalesTotal.Equal(dec("120.25")) {
		t.Errorf("cash_sales_total = %s, want 120.25", open.CashSalesTotal)
	}
	if open.Discrepancy != nil {
		t.Error("open shift should have no discrepancy")
	}

	if none, err := f.svc.GetOpenShift(context.Background(), cashier2, storeA); err != nil || none != nil {
		t.Errorf("cashier without shift = %v, %v; want nil", none, err)
	}
}

func TestCheckOutTwice(t *testing.T) {
	f := newShiftFixture(t)
	f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	shift := f.checkIn(t, "")
	f.clock.Set(local(2026, 3, 10, 16, 0))

	actor := Actor{UserID: cashier, Role: models.RoleCashier}
	if _, err := f.svc.CheckOut(context.Background(), actor, shift.ID, &models.CheckOutRequest{ClosingCash: dec("100")}); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.CheckOut(context.Background(), actor, shift.ID, &models.CheckOutRequest{ClosingCash: dec("100")})
	if de, ok := err.(*DomainError); !ok || de.Code != "ALREADY_CLOSED" {
		t.Fatalf("err = %v, want ALREADY_CLOSED", err)
	}
}

func TestCheckOutByOtherCashier(t *testing.T) {
	f := newShiftFixture(t)
	f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	shift := f.checkIn(t, "")
	f.clock.Set(local(2026, 3, 10, 16, 0))

	_, err := f.svc.CheckOut(context.Background(), Actor{UserID: cashier2, Role: models.RoleCashier}, shift.ID,
		&models.CheckOutRequest{ClosingCash: dec("100")})
	if !IsKind(err, KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}

	if _, err := f.svc.CheckOut(context.Background(), Actor{UserID: manager, Role: models.RoleManager}, shift.ID,
		&models.CheckOutRequest{ClosingCash: dec("100")}); err != nil {
		t.Fatalf("manager close: %v", err)
	}
}

func TestCheckOutKeepsAbsentAttendance(t *testing.T) {
	f := newShiftFixture(t)
	entry := f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	shift := f.checkIn(t, "")
	f.db.schedules[entry.ID].AttendanceStatus = models.AttendanceAbsent
	f.clock.Set(local(2026, 3, 10, 16, 0))

	if _, err := f.svc.CheckOut(context.Background(), Actor{UserID: cashier}, shift.ID,
		&models.CheckOutRequest{ClosingCash: dec("100")}); err != nil {
		t.Fatal(err)
	}
	if got := f.db.schedule(entry.ID).AttendanceStatus; got != models.AttendanceAbsent {
		t.Errorf("attendance = %s, want absent to stay", got)
	}
}

func TestCheckOutWhenAttendanceChangedUnderneath(t *testing.T) {
	f := newShiftFixture(t)
	entry := f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	shift := f.checkIn(t, "")
	f.clock.Set(local(2026, 3, 10, 16, 0))

	f.db.beforeSetAttendance = func(e *models.ScheduleEntry) {
		e.AttendanceStatus = models.AttendanceAbsent
	}

	closed, err := f.svc.CheckOut(context.Background(), Actor{UserID: cashier, Role: models.RoleCashier}, shift.ID,
		&models.CheckOutRequest{ClosingCash: dec("100")})
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if closed.Status != models.ShiftClosed {
		t.Errorf("status = %s, want closed", closed.Status)
	}
	if got := f.db.schedule(entry.ID).AttendanceStatus; got != models.AttendanceAbsent {
		t.Errorf("attendance = %s, want the concurrent absent to stand", got)
	}
}

func TestCashMovements(t *testing.T) {
	f := newShiftFixture(t)
	f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	shift := f.checkIn(t, "")
	actor := Actor{UserID: cashier, Role: models.RoleCashier}
	ctx := context.Background()

	if _, err := f.svc.AddCashMovement(ctx, actor, shift.ID, &models.CashMovementRequest{Type: models.CashIn, Amount: dec("40"), Reason: "float"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddCashMovement(ctx, actor, shift.ID, &models.CashMovementRequest{Type: models.CashOut, Amount: dec("15"), Reason: "supplies"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddCashMovement(ctx, actor, shift.ID, &models.CashMovementRequest{Type: models.CashOut, Amount: dec("0")}); !IsKind(err, KindValidation) {
		t.Fatalf("zero amount: err = %v, want validation", err)
	}

	f.clock.Set(local(2026, 3, 10, 16, 0))
	if _, err := f.svc.CheckOut(ctx, actor, shift.ID, &models.CheckOutRequest{ClosingCash: dec("125")}); err != nil {
		t.Fatal(err)
	}

	detail, err := f.svc.GetShift(ctx, shift.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.CashMovements) != 2 || !detail.NetCashMovement.Equal(dec("25")) {
		t.Errorf("movements = %d net %s", len(detail.CashMovements), detail.NetCashMovement)
	}
	if !detail.Discrepancy.Equal(dec("25")) {
		t.Errorf("discrepancy = %s, want 25", detail.Discrepancy)
	}
	if detail.AdjustedDiscrepancy == nil || !detail.AdjustedDiscrepancy.IsZero() {
		t.Errorf("adjusted discrepancy = %v, want 0", detail.AdjustedDiscrepancy)
	}

	_, err = f.svc.AddCashMovement(ctx, actor, shift.ID, &models.CashMovementRequest{Type: models.CashIn, Amount: dec("1")})
	if de, ok := err.(*DomainError); !ok || de.Code != "SHIFT_CLOSED" {
		t.Fatalf("err = %v, want SHIFT_CLOSED", err)
	}
}

func TestAttendanceIsMonotonic(t *testing.T) {
	f := newShiftFixture(t)
	entry := f.db.addSchedule(cashier, storeA, 2, date(2026, 3, 10))
	shift := f.checkIn(t, "")
	f.clock.Set(local(2026, 3, 10, 16, 0))
	if _, err := f.svc.CheckOut(context.Background(), Actor{UserID: cashier}, shift.ID, &models.CheckOutRequest{ClosingCash: dec("100")}); err != nil {
		t.Fatal(err)
	}

	f.clock.Set(local(2026, 3, 10, 16, 30))
	_, err := f.svc.CheckIn(context.Background(), cashier, &models.CheckInRequest{StoreID: storeA, OpeningCash: dec("0"), ScheduleID: &entry.ID})
	if !IsKind(err, KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}

	sweep := NewAbsenceSweep(memSchedules{f.db}, f.clock, 0, 0)
	f.clock.Set(local(2026, 3, 11, 9, 0))
	if _, err := sweep.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.db.schedule(entry.ID).AttendanceStatus; got != models.AttendanceCheckedOut {
		t.Errorf("attendance = %s, want checked_out", got)
	}
}
