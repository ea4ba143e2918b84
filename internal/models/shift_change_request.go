package models

import (
	"encoding/json"
	"time"

	"retail-backend/internal/timeutil"
)

type ShiftChangeType string

const (
	ShiftChangeSwap     ShiftChangeType = "swap"
	ShiftChangeGiveAway ShiftChangeType = "give_away"
	ShiftChangeTakeOver ShiftChangeType = "take_over"
)

func (t ShiftChangeType) Valid() bool {
	return t == ShiftChangeSwap || t == ShiftChangeGiveAway || t == ShiftChangeTakeOver
}

type ShiftChangeStatus string

const (
	ShiftChangePending   ShiftChangeStatus = "pending"
	ShiftChangeApproved  ShiftChangeStatus = "approved"
	ShiftChangeRejected  ShiftChangeStatus = "rejected"
	ShiftChangeCancelled ShiftChangeStatus = "cancelled"
)

type ShiftChangeRequest struct {
	ID                int               `json:"id"`
	FromUserID        int               `json:"from_user_id"`
	FromUserName      string            `json:"from_user_name,omitempty"`
	FromScheduleID    int               `json:"from_schedule_id"`
	StoreID           int               `json:"store_id"`
	RequestType       ShiftChangeType   `json:"request_type"`
	ToScheduleID      *int              `json:"to_schedule_id,omitempty"`
	ToUserID          *int              `json:"to_user_id,omitempty"`
	ToUserName        string            `json:"to_user_name,omitempty"`
	ToWorkDate        *time.Time        `json:"-"`
	ToShiftTemplateID *int              `json:"to_shift_template_id,omitempty"`
	Reason            string            `json:"reason,omitempty"`
	Status            ShiftChangeStatus `json:"status"`
	ReviewNotes       string            `json:"review_notes,omitempty"`
	ReviewedBy        *int              `json:"reviewed_by,omitempty"`
	RequestedAt       time.Time         `json:"requested_at"`
	ReviewedAt        *time.Time        `json:"reviewed_at,omitempty"`
}

// MarshalJSON renders to_work_date as a plain calendar date.
func (r ShiftChangeRequest) MarshalJSON() ([]byte, error) {
	type alias ShiftChangeRequest
	var workDate *string
	if r.ToWorkDate != nil {
		d := r.ToWorkDate.Format(timeutil.DateLayout)
		workDate = &d
	}
	return json.Marshal(struct {
		alias
		ToWorkDate *string `json:"to_work_date,omitempty"`
	}{alias: alias(r), ToWorkDate: workDate})
}

// HasSlotTarget reports whether the target is an empty (date, template) slot.
func (r *ShiftChangeRequest) HasSlotTarget() bool {
	return r.ToWorkDate != nil && r.ToShiftTemplateID != nil
}

// IsDelegated reports whether target resolution was left to the reviewing manager.
func (r *ShiftChangeRequest) IsDelegated() bool {
	return r.ToScheduleID == nil && r.ToUserID == nil && !r.HasSlotTarget()
}

type CreateShiftChangeRequest struct {
	RequestType       ShiftChangeType `json:"request_type"`
	FromScheduleID    int             `json:"from_schedule_id"`
	ToScheduleID      *int            `json:"to_schedule_id,omitempty"`
	ToUserID          *int            `json:"to_user_id,omitempty"`
	ToWorkDate        string          `json:"to_work_date,omitempty"` // YYYY-MM-DD
	ToShiftTemplateID *int            `json:"to_shift_template_id,omitempty"`
	Reason            string          `json:"reason,omitempty"`
}

type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approved"
	DecisionReject  ReviewDecision = "rejected"
)

type ReviewShiftChangeRequest struct {
	Decision         ReviewDecision `json:"decision"`
	Notes            string         `json:"notes,omitempty"`
	AssignToUserID   *int           `json:"assign_to_user_id,omitempty"`
	AssignScheduleID *int           `json:"assign_schedule_id,omitempty"`
}

type ShiftChangeFilter struct {
	StoreID    int
	Status     ShiftChangeStatus
	FromUserID int
}
