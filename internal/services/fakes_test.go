package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"retail-backend/internal/models"
	"retail-backend/internal/timeutil"
)

var errInjected = errors.New("injected store failure")

// memDB is an in-memory stand-in for the relational store. Transactions are
// serialized and roll back to a snapshot on error; the confirmed-slot
// uniqueness rule is checked at commit like the deferred constraint.
type memDB struct {
	mu     sync.Mutex
	txLock sync.Mutex
	inTx   bool

	nextID    int
	schedules map[int]*models.ScheduleEntry
	templates map[int]*models.ShiftTemplate
	shifts    map[int]*models.Shift
	movements []*models.CashMovement
	requests  map[int]*models.ShiftChangeRequest
	users     map[int]*models.User
	payments  map[int]models.PaymentTotals

	// failAt["Reassign"] = 2 fails the second Reassign call
	failAt map[string]int
	calls  map[string]int

	// beforeSetAttendance runs under the lock ahead of the guarded update,
	// standing in for a writer that got there first
	beforeSetAttendance func(e *models.ScheduleEntry)
}

func newMemDB() *memDB {
	db := &memDB{
		nextID:    100,
		schedules: map[int]*models.ScheduleEntry{},
		templates: map[int]*models.ShiftTemplate{},
		shifts:    map[int]*models.Shift{},
		requests:  map[int]*models.ShiftChangeRequest{},
		users:     map[int]*models.User{},
		payments:  map[int]models.PaymentTotals{},
		failAt:    map[string]int{},
		calls:     map[string]int{},
	}
	return db
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

func (db *memDB) hit(op string) error {
	db.calls[op]++
	if n, ok := db.failAt[op]; ok && db.calls[op] == n {
		return errInjected
	}
	return nil
}

type memSnapshot struct {
	nextID    int
	schedules map[int]models.ScheduleEntry
	shifts    map[int]models.Shift
	movements int
	requests  map[int]models.ShiftChangeRequest
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{
		nextID:    db.nextID,
		schedules: map[int]models.ScheduleEntry{},
		shifts:    map[int]models.Shift{},
		movements: len(db.movements),
		requests:  map[int]models.ShiftChangeRequest{},
	}
	for k, v := range db.schedules {
		s.schedules[k] = *v
	}
	for k, v := range db.shifts {
		s.shifts[k] = *v
	}
	for k, v := range db.requests {
		s.requests[k] = *v
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID = s.nextID
	db.schedules = map[int]*models.ScheduleEntry{}
	for k, v := range s.schedules {
		v := v
		db.schedules[k] = &v
	}
	db.shifts = map[int]*models.Shift{}
	for k, v := range s.shifts {
		v := v
		db.shifts[k] = &v
	}
	db.movements = db.movements[:s.movements]
	db.requests = map[int]*models.ShiftChangeRequest{}
	for k, v := range s.requests {
		v := v
		db.requests[k] = &v
	}
}

func (db *memDB) checkSlots() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.checkSlotsLocked()
}

// checkSlotsLocked enforces one confirmed entry per (employee, store, date, template).
func (db *memDB) checkSlotsLocked() error {
	seen := map[string]bool{}
	for _, e := range db.schedules {
		if e.Status != models.ScheduleConfirmed {
			continue
		}
		key := fmt.Sprintf("%d/%d/%s/%d", e.EmployeeID, e.StoreID, e.WorkDate.Format(timeutil.DateLayout), e.ShiftTemplateID)
		if seen[key] {
			return &pgconn.PgError{Code: "23P01", ConstraintName: "schedules_one_confirmed_slot"}
		}
		seen[key] = true
	}
	return nil
}

// WithTransaction implements TxRunner.
func (db *memDB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	db.txLock.Lock()
	defer db.txLock.Unlock()

	snap := db.snapshot()
	db.setInTx(true)
	defer db.setInTx(false)

	if err := fn(ctx); err != nil {
		db.restore(snap)
		return err
	}
	if err := db.checkSlots(); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *memDB) setInTx(v bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.inTx = v
}

// ---- seeding helpers ----

func (db *memDB) addTemplate(id int, name, start, end string) *models.ShiftTemplate {
	s, _ := timeutil.ParseTimeOfDay(start)
	e, _ := timeutil.ParseTimeOfDay(end)
	t := &models.ShiftTemplate{ID: id, Name: name, StartTime: s, EndTime: e}
	db.templates[id] = t
	return t
}

func (db *memDB) addUser(id int, role string) *models.User {
	u := &models.User{ID: id, Name: fmt.Sprintf("user-%d", id), Role: role, IsActive: true}
	db.users[id] = u
	return u
}

func (db *memDB) addSchedule(employeeID, storeID, templateID int, workDate time.Time) *models.ScheduleEntry {
	e := &models.ScheduleEntry{
		ID:               db.id(),
		EmployeeID:       employeeID,
		StoreID:          storeID,
		ShiftTemplateID:  templateID,
		WorkDate:         workDate,
		Status:           models.ScheduleConfirmed,
		AttendanceStatus: models.AttendanceNotCheckedIn,
		Template:         db.templates[templateID],
	}
	db.schedules[e.ID] = e
	return e
}

func (db *memDB) schedule(id int) models.ScheduleEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.schedules[id]
}

func (db *memDB) request(id int) models.ShiftChangeRequest {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.requests[id]
}

func (db *memDB) openShifts(cashierID, storeID int) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, s := range db.shifts {
		if s.CashierID == cashierID && s.StoreID == storeID && s.Status == models.ShiftOpened {
			n++
		}
	}
	return n
}

// ---- ScheduleStore ----

type memSchedules struct{ db *memDB }

func (m memSchedules) Create(ctx context.Context, e *models.ScheduleEntry) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.hit("ScheduleCreate"); err != nil {
		return err
	}
	e.ID = m.db.id()
	e.Status = models.ScheduleConfirmed
	e.AttendanceStatus = models.AttendanceNotCheckedIn
	if e.Template == nil {
		e.Template = m.db.templates[e.ShiftTemplateID]
	}
	cp := *e
	m.db.schedules[e.ID] = &cp
	if !m.db.inTx {
		if err := m.db.checkSlotsLocked(); err != nil {
			delete(m.db.schedules, e.ID)
			return err
		}
	}
	return nil
}

func (m memSchedules) GetByID(ctx context.Context, id int) (*models.ScheduleEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.schedules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m memSchedules) GetByIDForUpdate(ctx context.Context, id int) (*models.ScheduleEntry, error) {
	return m.GetByID(ctx, id)
}

func (m memSchedules) ListCheckInCandidatesForUpdate(ctx context.Context, employeeID, storeID int, workDates []time.Time) ([]*models.ScheduleEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.ScheduleEntry
	for _, e := range m.db.schedules {
		if e.EmployeeID != employeeID || e.StoreID != storeID || e.Status != models.ScheduleConfirmed {
			continue
		}
		if e.AttendanceStatus != models.AttendanceNotCheckedIn && e.AttendanceStatus != models.AttendanceCheckedIn {
			continue
		}
		for _, d := range workDates {
			if timeutil.SameDate(d, e.WorkDate) {
				cp := *e
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].WorkDate.Before(out[j].WorkDate)
		}
		return out[i].ShiftTemplateID < out[j].ShiftTemplateID
	})
	return out, nil
}

func (m memSchedules) List(ctx context.Context, f models.ScheduleFilter) ([]*models.ScheduleEntry, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.ScheduleEntry
	for _, e := range m.db.schedules {
		if f.StoreID > 0 && e.StoreID != f.StoreID {
			continue
		}
		if f.EmployeeID > 0 && e.EmployeeID != f.EmployeeID {
			continue
		}
		if f.DateFrom != nil && e.WorkDate.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && e.WorkDate.After(*f.DateTo) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memSchedules) SetAttendance(ctx context.Context, id int, from, to models.AttendanceStatus) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.schedules[id]
	if ok && m.db.beforeSetAttendance != nil {
		m.db.beforeSetAttendance(e)
	}
	if !ok || e.AttendanceStatus != from {
		return false, nil
	}
	e.AttendanceStatus = to
	return true, nil
}

func (m memSchedules) Reassign(ctx context.Context, id, employeeID int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.hit("Reassign"); err != nil {
		return err
	}
	e, ok := m.db.schedules[id]
	if !ok || e.Status != models.ScheduleConfirmed {
		return pgx.ErrNoRows
	}
	e.EmployeeID = employeeID
	return nil
}

func (m memSchedules) Cancel(ctx context.Context, id int) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.schedules[id]
	if !ok || e.Status != models.ScheduleConfirmed {
		return false, nil
	}
	e.Status = models.ScheduleCancelled
	return true, nil
}

func (m memSchedules) MarkAbsent(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.hit("MarkAbsent"); err != nil {
		return 0, err
	}
	ids := make([]int, 0, len(m.db.schedules))
	for id := range m.db.schedules {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var n int64
	for _, id := range ids {
		if int(n) >= limit {
			break
		}
		e := m.db.schedules[id]
		if e.Status != models.ScheduleConfirmed || e.AttendanceStatus != models.AttendanceNotCheckedIn {
			continue
		}
		_, end := e.Template.Window(e.WorkDate)
		if timeutil.Wall(end).Before(cutoff) {
			e.AttendanceStatus = models.AttendanceAbsent
			n++
		}
	}
	return n, nil
}

// ---- TemplateStore ----

type memTemplates struct{ db *memDB }

func (m memTemplates) List(ctx context.Context) ([]*models.ShiftTemplate, error) {
	var out []*models.ShiftTemplate
	for _, t := range m.db.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memTemplates) GetByID(ctx context.Context, id int) (*models.ShiftTemplate, error) {
	t, ok := m.db.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return t, nil
}

// ---- ShiftStore ----

type memShifts struct{ db *memDB }

func (m memShifts) LockCashier(ctx context.Context, cashierID, storeID int) error { return nil }

func (m memShifts) Create(ctx context.Context, s *models.Shift) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, o := range m.db.shifts {
		if o.CashierID == s.CashierID && o.StoreID == s.StoreID && o.Status == models.ShiftOpened {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_shifts_one_open"}
		}
	}
	s.ID = m.db.id()
	s.Status = models.ShiftOpened
	s.CashSalesTotal = decimal.Zero
	cp := *s
	m.db.shifts[s.ID] = &cp
	return nil
}

func (m memShifts) GetByID(ctx context.Context, id int) (*models.Shift, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.shifts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m memShifts) GetByIDForUpdate(ctx context.Context, id int) (*models.Shift, error) {
	return m.GetByID(ctx, id)
}

func (m memShifts) GetOpen(ctx context.Context, cashierID, storeID int) (*models.Shift, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, s := range m.db.shifts {
		if s.CashierID == cashierID && s.StoreID == storeID && s.Status == models.ShiftOpened {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m memShifts) Close(ctx context.Context, s *models.Shift) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.shifts[s.ID]
	if !ok || cur.Status != models.ShiftOpened {
		return false, nil
	}
	cp := *s
	cp.Discrepancy = nil
	m.db.shifts[s.ID] = &cp
	return true, nil
}

func (m memShifts) List(ctx context.Context, f models.ShiftFilter) ([]*models.Shift, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.Shift
	for _, s := range m.db.shifts {
		if f.StoreID > 0 && s.StoreID != f.StoreID {
			continue
		}
		if f.CashierID > 0 && s.CashierID != f.CashierID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memShifts) ListForReport(ctx context.Context, f models.ShiftReportFilter) ([]*models.Shift, error) {
	all, _ := m.List(ctx, models.ShiftFilter{StoreID: f.StoreID, CashierID: f.CashierID, Status: models.ShiftClosed})
	var out []*models.Shift
	for _, s := range all {
		at := s.OpenedAt
		if s.ClosedAt != nil {
			at = *s.ClosedAt
		}
		if f.DateFrom != nil && at.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && !at.Before(*f.DateTo) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ---- CashMovementStore ----

type memCash struct{ db *memDB }

func (m memCash) Create(ctx context.Context, mv *models.CashMovement) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	mv.ID = m.db.id()
	cp := *mv
	m.db.movements = append(m.db.movements, &cp)
	return nil
}

func (m memCash) ListByShift(ctx context.Context, shiftID int) ([]*models.CashMovement, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*models.CashMovement{}
	for _, mv := range m.db.movements {
		if mv.ShiftID == shiftID {
			cp := *mv
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- PaymentReader ----

type memPayments struct{ db *memDB }

func (m memPayments) ShiftTotals(ctx context.Context, shiftID int) (models.PaymentTotals, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.payments[shiftID], nil
}

func (m memPayments) TotalsByShift(ctx context.Context, ids []int) (map[int]models.PaymentTotals, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := map[int]models.PaymentTotals{}
	for _, id := range ids {
		if t, ok := m.db.payments[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

// ---- ChangeRequestStore ----

type memRequests struct{ db *memDB }

func (m memRequests) Create(ctx context.Context, r *models.ShiftChangeRequest) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r.ID = m.db.id()
	r.Status = models.ShiftChangePending
	cp := *r
	m.db.requests[r.ID] = &cp
	return nil
}

func (m memRequests) GetByID(ctx context.Context, id int) (*models.ShiftChangeRequest, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r, ok := m.db.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m memRequests) GetByIDForUpdate(ctx context.Context, id int) (*models.ShiftChangeRequest, error) {
	return m.GetByID(ctx, id)
}

func (m memRequests) List(ctx context.Context, f models.ShiftChangeFilter) ([]*models.ShiftChangeRequest, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []*models.ShiftChangeRequest{}
	for _, r := range m.db.requests {
		if f.StoreID > 0 && r.StoreID != f.StoreID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.FromUserID > 0 && r.FromUserID != f.FromUserID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memRequests) Settle(ctx context.Context, r *models.ShiftChangeRequest) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.requests[r.ID]
	if !ok || cur.Status != models.ShiftChangePending {
		return false, nil
	}
	cp := *r
	m.db.requests[r.ID] = &cp
	return true, nil
}

func (m memRequests) CountPending(ctx context.Context, storeID int) (int, error) {
	list, _ := m.List(ctx, models.ShiftChangeFilter{StoreID: storeID, Status: models.ShiftChangePending})
	return len(list), nil
}

// ---- UserStore ----

type memUsers struct{ db *memDB }

func (m memUsers) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := m.db.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// ---- clock ----

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(t time.Time) *manualClock { return &manualClock{now: t} }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// local builds a store-local instant.
func local(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, timeutil.Location)
}

// date builds a DATE value as returned by the driver.
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
