package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"retail-backend/internal/cache"
	"retail-backend/internal/metrics"
	"retail-backend/internal/models"
	"retail-backend/internal/timeutil"
)

// ShiftChangeService runs the swap / give-away / take-over request workflow.
// Request status and the schedule mutations of an approval are written in
// the same transaction.
type ShiftChangeService struct {
	RequestRepo  ChangeRequestStore
	ScheduleRepo ScheduleStore
	TemplateRepo TemplateStore
	UserRepo     UserStore
	Tx           TxRunner
	Clock        timeutil.Clock
}

func NewShiftChangeService(
	requestRepo ChangeRequestStore,
	scheduleRepo ScheduleStore,
	templateRepo TemplateStore,
	userRepo UserStore,
	tx TxRunner,
	clock timeutil.Clock,
) *ShiftChangeService {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &ShiftChangeService{
		RequestRepo:  requestRepo,
		ScheduleRepo: scheduleRepo,
		TemplateRepo: templateRepo,
		UserRepo:     userRepo,
		Tx:           tx,
		Clock:        clock,
	}
}

// CreateRequest files a pending change request for one of the caller's future entries.
func (s *ShiftChangeService) CreateRequest(ctx context.Context, actor Actor, req *models.CreateShiftChangeRequest) (*models.ShiftChangeRequest, error) {
	if !req.RequestType.Valid() {
		return nil, ErrValidation("request_type must be swap, give_away or take_over")
	}
	if req.FromScheduleID <= 0 {
		return nil, ErrValidation("from_schedule_id is required")
	}

	today := timeutil.DateOf(s.Clock.Now())

	from, err := s.ScheduleRepo.GetByID(ctx, req.FromScheduleID)
	if isNoRows(err) {
		return nil, ErrNotFound("schedule not found")
	}
	if err != nil {
		return nil, err
	}
	if from.EmployeeID != actor.UserID {
		return nil, ErrValidation("you can only request changes to your own schedule")
	}
	if err := checkChangeable(from, today); err != nil {
		return nil, err
	}

	scr := &models.ShiftChangeRequest{
		FromUserID:     actor.UserID,
		FromScheduleID: from.ID,
		StoreID:        from.StoreID,
		RequestType:    req.RequestType,
		Reason:         req.Reason,
	}

	hasSlot := req.ToWorkDate != "" || req.ToShiftTemplateID != nil
	if req.ToScheduleID != nil && hasSlot {
		return nil, ErrValidation("choose either a target schedule or an empty slot, not both")
	}

	switch req.RequestType {
	case models.ShiftChangeGiveAway:
		if req.ToScheduleID != nil || hasSlot {
			return nil, ErrValidation("give_away targets an employee, not a schedule")
		}
	case models.ShiftChangeSwap, models.ShiftChangeTakeOver:
		if req.ToScheduleID != nil {
			to, err := s.ScheduleRepo.GetByID(ctx, *req.ToScheduleID)
			if isNoRows(err) {
				return nil, ErrNotFound("target schedule not found")
			}
			if err != nil {
				return nil, err
			}
			if err := checkTarget(to, from.StoreID, actor.UserID, today); err != nil {
				return nil, err
			}
			if req.ToUserID != nil && *req.ToUserID != to.EmployeeID {
				return nil, ErrValidation("target schedule does not belong to the chosen employee")
			}
			scr.ToScheduleID = &to.ID
			scr.ToUserID = &to.EmployeeID
		}
		if hasSlot {
			workDate, tmplID, err := s.checkSlot(ctx, req.ToWorkDate, req.ToShiftTemplateID, today)
			if err != nil {
				return nil, err
			}
			scr.ToWorkDate = &workDate
			scr.ToShiftTemplateID = &tmplID
		}
	}

	if req.ToUserID != nil && scr.ToUserID == nil {
		if err := s.checkEmployee(ctx, *req.ToUserID, actor.UserID); err != nil {
			return nil, err
		}
		scr.ToUserID = req.ToUserID
	}

	pending, err := s.RequestRepo.List(ctx, models.ShiftChangeFilter{FromUserID: actor.UserID, Status: models.ShiftChangePending})
	if err != nil {
		return nil, err
	}
	for _, p := range pending {
		if p.FromScheduleID == from.ID {
			return nil, ErrConflict("a pending request already exists for this schedule")
		}
	}

	if err := s.RequestRepo.Create(ctx, scr); err != nil {
		return nil, classifyStoreError(err, "request conflict")
	}

	log.Printf("[ShiftChangeService] User %d requested %s of schedule %d (request %d)",
		actor.UserID, scr.RequestType, from.ID, scr.ID)
	cache.InvalidatePendingChanges(ctx, scr.StoreID)
	return scr, nil
}

// ReviewRequest approves or rejects a pending request. Approval applies the
// schedule effect in the same transaction as the status write.
func (s *ShiftChangeService) ReviewRequest(ctx context.Context, actor Actor, id int, review *models.ReviewShiftChangeRequest) (*models.ShiftChangeRequest, error) {
	if review.Decision != models.DecisionApprove && review.Decision != models.DecisionReject {
		return nil, ErrValidation("decision must be approved or rejected")
	}

	now := s.Clock.Now()
	var scr *models.ShiftChangeRequest
	var touched []int

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		scr, err = s.RequestRepo.GetByIDForUpdate(ctx, id)
		if isNoRows(err) {
			return ErrNotFound("shift change request not found")
		}
		if err != nil {
			return err
		}
		if scr.Status != models.ShiftChangePending {
			return ErrNotPending()
		}

		if review.Decision == models.DecisionApprove {
			touched, err = s.apply(ctx, scr, review, timeutil.DateOf(now))
			if err != nil {
				return err
			}
		}

		reviewer := actor.UserID
		scr.Status = models.ShiftChangeStatus(review.Decision)
		scr.ReviewNotes = review.Notes
		scr.ReviewedBy = &reviewer
		scr.ReviewedAt = &now

		ok, err := s.RequestRepo.Settle(ctx, scr)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotPending()
		}
		return nil
	})
	if err != nil {
		return nil, classifyStoreError(err, "the employee already has a shift in that slot")
	}

	metrics.ShiftChangeDecisionsTotal.WithLabelValues(string(scr.Status)).Inc()
	log.Printf("[ShiftChangeService] Request %d %s by user %d (schedules touched: %v)", scr.ID, scr.Status, actor.UserID, touched)
	cache.InvalidatePendingChanges(ctx, scr.StoreID)
	if len(touched) > 0 {
		cache.InvalidateStoreSchedules(ctx, scr.StoreID)
	}
	return scr, nil
}

// apply performs the schedule mutation of an approved request and returns the
// ids of the entries it changed or created. Entries are re-validated under lock.
func (s *ShiftChangeService) apply(ctx context.Context, scr *models.ShiftChangeRequest, review *models.ReviewShiftChangeRequest, today time.Time) ([]int, error) {
	from, err := s.ScheduleRepo.GetByIDForUpdate(ctx, scr.FromScheduleID)
	if isNoRows(err) {
		return nil, ErrValidation("the original schedule no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if from.EmployeeID != scr.FromUserID {
		return nil, ErrValidation("the original schedule has been reassigned since the request was made")
	}
	if err := checkChangeable(from, today); err != nil {
		return nil, err
	}

	toScheduleID := scr.ToScheduleID
	if toScheduleID == nil && review.AssignScheduleID != nil {
		toScheduleID = review.AssignScheduleID
	}
	toUserID := scr.ToUserID
	if toUserID == nil && review.AssignToUserID != nil {
		toUserID = review.AssignToUserID
	}

	switch scr.RequestType {
	case models.ShiftChangeSwap:
		if toScheduleID != nil {
			to, err := s.lockTarget(ctx, *toScheduleID, from.StoreID, scr.FromUserID, today)
			if err != nil {
				return nil, err
			}
			if scr.ToUserID != nil && to.EmployeeID != *scr.ToUserID {
				return nil, ErrValidation("target schedule does not belong to the requested employee")
			}
			if err := s.ScheduleRepo.Reassign(ctx, from.ID, to.EmployeeID); err != nil {
				return nil, err
			}
			if err := s.ScheduleRepo.Reassign(ctx, to.ID, scr.FromUserID); err != nil {
				return nil, err
			}
			scr.ToScheduleID, scr.ToUserID = &to.ID, &to.EmployeeID
			return []int{from.ID, to.ID}, nil
		}
		if scr.HasSlotTarget() {
			created, err := s.createSlotEntry(ctx, scr, from.StoreID, today)
			if err != nil {
				return nil, err
			}
			if toUserID != nil {
				if err := s.checkEmployee(ctx, *toUserID, scr.FromUserID); err != nil {
					return nil, err
				}
				if err := s.ScheduleRepo.Reassign(ctx, from.ID, *toUserID); err != nil {
					return nil, err
				}
				scr.ToUserID = toUserID
			} else if _, err := s.ScheduleRepo.Cancel(ctx, from.ID); err != nil {
				return nil, err
			}
			scr.ToScheduleID = &created.ID
			return []int{from.ID, created.ID}, nil
		}
		return nil, ErrValidation("choose the schedule to swap with before approving")

	case models.ShiftChangeGiveAway:
		if toUserID == nil {
			return nil, ErrValidation("choose the employee who takes this shift before approving")
		}
		if err := s.checkEmployee(ctx, *toUserID, scr.FromUserID); err != nil {
			return nil, err
		}
		if err := s.ScheduleRepo.Reassign(ctx, from.ID, *toUserID); err != nil {
			return nil, err
		}
		scr.ToUserID = toUserID
		return []int{from.ID}, nil

	case models.ShiftChangeTakeOver:
		if toScheduleID != nil {
			to, err := s.lockTarget(ctx, *toScheduleID, from.StoreID, scr.FromUserID, today)
			if err != nil {
				return nil, err
			}
			if err := s.ScheduleRepo.Reassign(ctx, to.ID, scr.FromUserID); err != nil {
				return nil, err
			}
			scr.ToScheduleID, scr.ToUserID = &to.ID, &to.EmployeeID
			return []int{to.ID}, nil
		}
		if scr.HasSlotTarget() {
			created, err := s.createSlotEntry(ctx, scr, from.StoreID, today)
			if err != nil {
				return nil, err
			}
			scr.ToScheduleID = &created.ID
			return []int{created.ID}, nil
		}
		return nil, ErrValidation("choose the schedule to take over before approving")
	}

	return nil, ErrValidation("unknown request type")
}

// CancelRequest withdraws a pending request. Only its creator may do so.
func (s *ShiftChangeService) CancelRequest(ctx context.Context, actor Actor, id int) (*models.ShiftChangeRequest, error) {
	now := s.Clock.Now()
	var scr *models.ShiftChangeRequest

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		scr, err = s.RequestRepo.GetByIDForUpdate(ctx, id)
		if isNoRows(err) {
			return ErrNotFound("shift change request not found")
		}
		if err != nil {
			return err
		}
		if scr.FromUserID != actor.UserID {
			return ErrNotOwner("only the creator can cancel this request")
		}
		if scr.Status != models.ShiftChangePending {
			return ErrNotPending()
		}

		scr.Status = models.ShiftChangeCancelled
		scr.ReviewedAt = &now
		ok, err := s.RequestRepo.Settle(ctx, scr)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotPending()
		}
		return nil
	})
	if err != nil {
		return nil, classifyStoreError(err, "request conflict")
	}

	metrics.ShiftChangeDecisionsTotal.WithLabelValues(string(scr.Status)).Inc()
	cache.InvalidatePendingChanges(ctx, scr.StoreID)
	return scr, nil
}

func (s *ShiftChangeService) GetRequest(ctx context.Context, actor Actor, id int) (*models.ShiftChangeRequest, error) {
	scr, err := s.RequestRepo.GetByID(ctx, id)
	if isNoRows(err) {
		return nil, ErrNotFound("shift change request not found")
	}
	if err != nil {
		return nil, err
	}
	involved := scr.FromUserID == actor.UserID || (scr.ToUserID != nil && *scr.ToUserID == actor.UserID)
	if !involved && !actor.IsManager() {
		return nil, ErrNotOwner("you are not part of this request")
	}
	return scr, nil
}

func (s *ShiftChangeService) ListRequests(ctx context.Context, filter models.ShiftChangeFilter) ([]*models.ShiftChangeRequest, error) {
	if filter.Status != "" {
		switch filter.Status {
		case models.ShiftChangePending, models.ShiftChangeApproved, models.ShiftChangeRejected, models.ShiftChangeCancelled:
		default:
			return nil, ErrValidation("unknown status filter")
		}
	}
	return s.RequestRepo.List(ctx, filter)
}

func (s *ShiftChangeService) ListMyRequests(ctx context.Context, userID int) ([]*models.ShiftChangeRequest, error) {
	return s.RequestRepo.List(ctx, models.ShiftChangeFilter{FromUserID: userID})
}

// PendingCount drives the manager badge; cached briefly per store.
func (s *ShiftChangeService) PendingCount(ctx context.Context, storeID int) (int, error) {
	if storeID <= 0 {
		return 0, ErrValidation("store_id is required")
	}

	key := cache.PendingChangesKey(storeID)
	if data, ok := cache.GetCached(ctx, key); ok {
		if n, err := strconv.Atoi(string(data)); err == nil {
			return n, nil
		}
	}

	count, err := s.RequestRepo.CountPending(ctx, storeID)
	if err != nil {
		return 0, err
	}
	cache.SetCached(ctx, key, []byte(strconv.Itoa(count)), cache.PendingChangesTTL)
	return count, nil
}

func (s *ShiftChangeService) lockTarget(ctx context.Context, id, storeID, requesterID int, today time.Time) (*models.ScheduleEntry, error) {
	to, err := s.ScheduleRepo.GetByIDForUpdate(ctx, id)
	if isNoRows(err) {
		return nil, ErrValidation("target schedule no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if err := checkTarget(to, storeID, requesterID, today); err != nil {
		return nil, err
	}
	return to, nil
}

func (s *ShiftChangeService) createSlotEntry(ctx context.Context, scr *models.ShiftChangeRequest, storeID int, today time.Time) (*models.ScheduleEntry, error) {
	if !scr.ToWorkDate.After(today) {
		return nil, ErrValidation("the requested slot is no longer in the future")
	}
	entry := &models.ScheduleEntry{
		EmployeeID:      scr.FromUserID,
		StoreID:         storeID,
		ShiftTemplateID: *scr.ToShiftTemplateID,
		WorkDate:        *scr.ToWorkDate,
	}
	if err := s.ScheduleRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ShiftChangeService) checkSlot(ctx context.Context, workDate string, templateID *int, today time.Time) (time.Time, int, error) {
	if workDate == "" || templateID == nil {
		return time.Time{}, 0, ErrValidation("an empty slot needs both to_work_date and to_shift_template_id")
	}
	d, err := timeutil.ParseDate(workDate)
	if err != nil {
		return time.Time{}, 0, ErrValidation("to_work_date must be YYYY-MM-DD")
	}
	if !d.After(today) {
		return time.Time{}, 0, ErrValidation("same-day or past changes are not allowed")
	}
	if _, err := s.TemplateRepo.GetByID(ctx, *templateID); err != nil {
		if isNoRows(err) {
			return time.Time{}, 0, ErrValidation("shift template not found")
		}
		return time.Time{}, 0, err
	}
	return d, *templateID, nil
}

func (s *ShiftChangeService) checkEmployee(ctx context.Context, userID, requesterID int) error {
	if userID == requesterID {
		return ErrValidation("you cannot hand a shift to yourself")
	}
	u, err := s.UserRepo.GetByID(ctx, userID)
	if isNoRows(err) {
		return ErrValidation("target employee not found")
	}
	if err != nil {
		return err
	}
	if !u.IsActive {
		return ErrValidation("target employee is not active")
	}
	return nil
}

// checkChangeable: the entry is confirmed, strictly after today and not yet worked or missed.
func checkChangeable(e *models.ScheduleEntry, today time.Time) error {
	if !e.IsActive() {
		return ErrValidation("schedule has been cancelled")
	}
	if !e.WorkDate.After(today) {
		return ErrValidation("same-day or past shifts cannot be changed")
	}
	if e.AttendanceStatus != models.AttendanceNotCheckedIn {
		return ErrValidation(fmt.Sprintf("schedule is already %s", e.AttendanceStatus))
	}
	return nil
}

func checkTarget(to *models.ScheduleEntry, storeID, requesterID int, today time.Time) error {
	if to.StoreID != storeID {
		return ErrValidation("target schedule is at a different store")
	}
	if to.EmployeeID == requesterID {
		return ErrValidation("target schedule is already yours")
	}
	return checkChangeable(to, today)
}
