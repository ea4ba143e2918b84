package services

import (
	"context"
	"log"
	"time"

	"retail-backend/internal/cache"
	"retail-backend/internal/models"
	"retail-backend/internal/timeutil"
)

// ScheduleService covers the planning side of the schedule store. It never
// writes attendance_status.
type ScheduleService struct {
	ScheduleRepo ScheduleStore
	TemplateRepo TemplateStore
	UserRepo     UserStore
	Tx           TxRunner
	Clock        timeutil.Clock
}

func NewScheduleService(scheduleRepo ScheduleStore, templateRepo TemplateStore, userRepo UserStore, tx TxRunner, clock timeutil.Clock) *ScheduleService {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &ScheduleService{
		ScheduleRepo: scheduleRepo,
		TemplateRepo: templateRepo,
		UserRepo:     userRepo,
		Tx:           tx,
		Clock:        clock,
	}
}

func (s *ScheduleService) CreateSchedule(ctx context.Context, actor Actor, req *models.CreateScheduleRequest) (*models.ScheduleEntry, error) {
	if req.EmployeeID <= 0 || req.StoreID <= 0 || req.ShiftTemplateID <= 0 {
		return nil, ErrValidation("employee_id, store_id and shift_template_id are required")
	}
	workDate, err := timeutil.ParseDate(req.WorkDate)
	if err != nil {
		return nil, ErrValidation("work_date must be YYYY-MM-DD")
	}
	if workDate.Before(timeutil.DateOf(s.Clock.Now())) {
		return nil, ErrValidation("cannot schedule a date in the past")
	}

	tmpl, err := s.TemplateRepo.GetByID(ctx, req.ShiftTemplateID)
	if isNoRows(err) {
		return nil, ErrValidation("shift template not found")
	}
	if err != nil {
		return nil, err
	}

	employee, err := s.UserRepo.GetByID(ctx, req.EmployeeID)
	if isNoRows(err) {
		return nil, ErrValidation("employee not found")
	}
	if err != nil {
		return nil, err
	}
	if !employee.IsActive {
		return nil, ErrValidation("employee is not active")
	}

	createdBy := actor.UserID
	entry := &models.ScheduleEntry{
		EmployeeID:      req.EmployeeID,
		EmployeeName:    employee.Name,
		StoreID:         req.StoreID,
		ShiftTemplateID: req.ShiftTemplateID,
		WorkDate:        workDate,
		CreatedBy:       &createdBy,
		Template:        tmpl,
	}
	if err := s.ScheduleRepo.Create(ctx, entry); err != nil {
		return nil, classifyStoreError(err, "employee already has this shift on that date")
	}

	cache.InvalidateStoreSchedules(ctx, entry.StoreID)
	return entry, nil
}

// CancelSchedule supersedes an entry that has not been worked.
func (s *ScheduleService) CancelSchedule(ctx context.Context, id int) (*models.ScheduleEntry, error) {
	var entry *models.ScheduleEntry

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.ScheduleRepo.GetByIDForUpdate(ctx, id)
		if isNoRows(err) {
			return ErrNotFound("schedule not found")
		}
		if err != nil {
			return err
		}
		if !entry.IsActive() {
			return ErrState("schedule is already cancelled")
		}
		if entry.AttendanceStatus == models.AttendanceCheckedIn || entry.AttendanceStatus == models.AttendanceCheckedOut {
			return ErrState("schedule has already been worked")
		}

		ok, err := s.ScheduleRepo.Cancel(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrState("schedule is already cancelled")
		}
		entry.Status = models.ScheduleCancelled
		return nil
	})
	if err != nil {
		return nil, classifyStoreError(err, "schedule conflict")
	}

	log.Printf("[ScheduleService] Schedule %d cancelled", id)
	cache.InvalidateStoreSchedules(ctx, entry.StoreID)
	return entry, nil
}

func (s *ScheduleService) GetSchedule(ctx context.Context, id int) (*models.ScheduleEntry, error) {
	entry, err := s.ScheduleRepo.GetByID(ctx, id)
	if isNoRows(err) {
		return nil, ErrNotFound("schedule not found")
	}
	return entry, err
}

// ListSchedules lists a store's entries between two dates. Store-wide listings
// are cached per store and range.
func (s *ScheduleService) ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]*models.ScheduleEntry, error) {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, ErrValidation("date_to must not be before date_from")
	}

	cacheable := filter.StoreID > 0 && filter.EmployeeID == 0 && filter.DateFrom != nil && filter.DateTo != nil
	var key string
	if cacheable {
		key = cache.StoreSchedulesKey(filter.StoreID,
			filter.DateFrom.Format(timeutil.DateLayout), filter.DateTo.Format(timeutil.DateLayout))
		var cached []*models.ScheduleEntry
		if cache.GetJSON(ctx, key, &cached) {
			return cached, nil
		}
	}

	entries, err := s.ScheduleRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.ScheduleEntry{}
	}

	if cacheable {
		cache.SetJSON(ctx, key, entries, cache.SchedulesTTL)
	}
	return entries, nil
}

// ListMySchedules returns the caller's entries from today onwards (two weeks by default).
func (s *ScheduleService) ListMySchedules(ctx context.Context, userID int, from, to *time.Time) ([]*models.ScheduleEntry, error) {
	today := timeutil.DateOf(s.Clock.Now())
	if from == nil {
		from = &today
	}
	if to == nil {
		end := from.AddDate(0, 0, 14)
		to = &end
	}
	return s.ListSchedules(ctx, models.ScheduleFilter{EmployeeID: userID, DateFrom: from, DateTo: to})
}

func (s *ScheduleService) ListTemplates(ctx context.Context) ([]*models.ShiftTemplate, error) {
	var cached []*models.ShiftTemplate
	if cache.GetJSON(ctx, cache.ShiftTemplatesKey, &cached) {
		return cached, nil
	}

	templates, err := s.TemplateRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []*models.ShiftTemplate{}
	}

	cache.SetJSON(ctx, cache.ShiftTemplatesKey, templates, cache.TemplatesTTL)
	return templates, nil
}

func (s *ScheduleService) GetTemplate(ctx context.Context, id int) (*models.ShiftTemplate, error) {
	tmpl, err := s.TemplateRepo.GetByID(ctx, id)
	if isNoRows(err) {
		return nil, ErrNotFound("shift template not found")
	}
	return tmpl, err
}
