package models

import (
	"strings"
	"time"

	"Gin_postgres_redis_tool_tracker/apperr"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusReturned RequestStatus = "returned"
	// StatusOverdue is never stored; overdue is derived from
	// ExpectedReturnTime so the tool stays tied to its approved request.
	StatusOverdue RequestStatus = "overdue"
)

var AllStatuses = []RequestStatus{StatusPending, StatusApproved, StatusRejected, StatusReturned, StatusOverdue}

func (s RequestStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CanTransition reports whether from -> to is a legal move. Only
// pending/new -> approved and approved -> returned are allowed.
func CanTransition(from, to RequestStatus) bool {
	switch to {
	case StatusApproved:
		return from == "" || from == StatusPending
	case StatusReturned:
		return from == StatusApproved
	}
	return false
}

// Request is one checkout of one tool by one user.
type Request struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	UserID             uint          `gorm:"not null;index" json:"user_id"`
	ToolID             uint          `gorm:"not null;index" json:"tool_id"`
	RequestTime        time.Time     `gorm:"not null" json:"request_time"`
	ApprovalTime       *time.Time    `json:"approval_time,omitempty"`
	ExpectedReturnTime *time.Time    `json:"expected_return_time,omitempty"`
	ActualReturnTime   *time.Time    `json:"actual_return_time,omitempty"`
	Status             RequestStatus `gorm:"size:20;not null" json:"status"`
	Purpose            string        `gorm:"type:text" json:"purpose"`
	AdminNotes         string        `gorm:"type:text" json:"admin_notes"`
	ConditionBefore    string        `gorm:"type:text" json:"condition_before"`
	ConditionAfter     string        `gorm:"type:text" json:"condition_after"`
}

func (Request) TableName() string { return "requests" }

// Approve moves a new or pending request to approved and fixes its due time.
func (r *Request) Approve(now time.Time, loanPeriod time.Duration) error {
	if !CanTransition(r.Status, StatusApproved) {
		return apperr.InvalidState("request #%d cannot be approved from status %q", r.ID, r.Status)
	}
	if r.RequestTime.IsZero() {
		r.RequestTime = now
	}
	due := now.Add(loanPeriod)
	r.Status = StatusApproved
	r.ApprovalTime = &now
	r.ExpectedReturnTime = &due
	return nil
}

// Return closes an approved request. Empty condition or notes leave the
// stored values untouched.
func (r *Request) Return(now time.Time, conditionAfter, notes string) error {
	if !CanTransition(r.Status, StatusReturned) {
		return apperr.InvalidState("request #%d is no longer active", r.ID)
	}
	r.Status = StatusReturned
	r.ActualReturnTime = &now
	if s := strings.TrimSpace(conditionAfter); s != "" {
		r.ConditionAfter = s
	}
	if s := strings.TrimSpace(notes); s != "" {
		r.AdminNotes = s
	}
	return nil
}

func (r *Request) IsActive() bool { return r.Status == StatusApproved }

// IsOverdue is true for an approved request past its expected return time.
func (r *Request) IsOverdue(now time.Time) bool {
	return r.IsActive() && r.ExpectedReturnTime != nil && r.ExpectedReturnTime.Before(now)
}
