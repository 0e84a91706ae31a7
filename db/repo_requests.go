package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/models"
)

// RequestDetail is a request with its user and tool loaded.
type RequestDetail struct {
	models.Request
	User    models.User `json:"user"`
	Tool    models.Tool `json:"tool"`
	Overdue bool        `json:"overdue"`
}

// RequestRow is the flat listing shape for requests.
type RequestRow struct {
	models.Request
	UserName       string  `json:"user_name"`
	UserEmployeeID *string `json:"user_employee_id,omitempty"`
	UserDepartment string  `json:"user_department"`
	ToolName       string  `json:"tool_name"`
	ToolScanCode   string  `json:"tool_scan_code"`
	ToolCategory   string  `json:"tool_category"`
	Overdue        bool    `json:"overdue"`
}

type RequestFilter struct {
	Status  models.RequestStatus
	UserID  uint
	ToolID  uint
	Overdue bool
	From    *time.Time // request_time >= From
	To      *time.Time // request_time < To
	// All disables paging, for exports.
	All  bool
	Page int
	Size int
}

type RequestPage struct {
	Requests []RequestRow `json:"requests"`
	Total    int64        `json:"total"`
}

type TakeInput struct {
	UserID          uint
	ToolID          uint
	Purpose         string
	ConditionBefore string
	Now             time.Time
	LoanPeriod      time.Duration
}

type ReturnInput struct {
	RequestID      uint
	ConditionAfter string
	Notes          string
	Now            time.Time
}

func (r *Repo) ActiveRequestForTool(ctx context.Context, toolID uint) (*models.Request, error) {
	var req models.Request
	err := r.DB.WithContext(ctx).
		Where("tool_id = ? AND status = ?", toolID, models.StatusApproved).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "active request")
	}
	return &req, nil
}

func (r *Repo) FindRequestByID(ctx context.Context, id uint) (*models.Request, error) {
	var req models.Request
	if err := r.DB.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, notFound(err, "find request", "request #%d not found", id)
	}
	return &req, nil
}

func (r *Repo) GetRequestDetail(ctx context.Context, id uint) (*RequestDetail, error) {
	var d *RequestDetail
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.Request
		if err := tx.First(&req, id).Error; err != nil {
			return notFound(err, "find request", "request #%d not found", id)
		}
		var err error
		d, err = loadDetail(tx, req)
		return err
	})
	if err != nil {
		return nil, translate(err, "request detail")
	}
	return d, nil
}

func loadDetail(tx *gorm.DB, req models.Request) (*RequestDetail, error) {
	d := &RequestDetail{Request: req}
	if err := tx.First(&d.User, req.UserID).Error; err != nil {
		return nil, err
	}
	if err := tx.First(&d.Tool, req.ToolID).Error; err != nil {
		return nil, err
	}
	d.Overdue = req.IsOverdue(time.Now())
	return d, nil
}

// TakeTool checks a tool out to a user. The tool row is locked and its
// availability re-read inside the transaction.
func (r *Repo) TakeTool(ctx context.Context, in TakeInput) (*RequestDetail, error) {
	var out *RequestDetail
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tool models.Tool
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tool, in.ToolID).Error; err != nil {
			return notFound(err, "lock tool", "tool not found")
		}
		var user models.User
		if err := tx.First(&user, in.UserID).Error; err != nil {
			return notFound(err, "load user", "user not found")
		}
		if !user.IsActive {
			return apperr.Forbidden("user %s is deactivated", user.FullName())
		}
		if !tool.IsAvailable {
			return apperr.Conflict("tool %q is already taken", tool.Name)
		}

		req := models.Request{
			UserID:          user.ID,
			ToolID:          tool.ID,
			Purpose:         strings.TrimSpace(in.Purpose),
			ConditionBefore: strings.TrimSpace(in.ConditionBefore),
		}
		if err := req.Approve(in.Now, in.LoanPeriod); err != nil {
			return err
		}
		if err := tx.Create(&req).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Tool{}).
			Where("id = ?", tool.ID).
			Updates(map[string]any{"is_available": false, "updated_at": in.Now}).Error; err != nil {
			return err
		}
		tool.IsAvailable = false
		out = &RequestDetail{Request: req, User: user, Tool: tool}
		return nil
	})
	if err != nil {
		return nil, translate(err, "take tool")
	}
	return out, nil
}

// ReturnRequest closes an approved request and releases its tool.
func (r *Repo) ReturnRequest(ctx context.Context, in ReturnInput) (*RequestDetail, error) {
	var out *RequestDetail
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.Request
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, in.RequestID).Error; err != nil {
			return notFound(err, "lock request", "request #%d not found", in.RequestID)
		}
		if err := req.Return(in.Now, in.ConditionAfter, in.Notes); err != nil {
			return err
		}
		if err := tx.Model(&models.Request{}).
			Where("id = ?", req.ID).
			Updates(map[string]any{
				"status":             req.Status,
				"actual_return_time": req.ActualReturnTime,
				"condition_after":    req.ConditionAfter,
				"admin_notes":        req.AdminNotes,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Tool{}).
			Where("id = ?", req.ToolID).
			Updates(map[string]any{"is_available": true, "updated_at": in.Now}).Error; err != nil {
			return err
		}
		d, err := loadDetail(tx, req)
		if err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, translate(err, "return request")
	}
	return out, nil
}

const requestRowSelect = `
	r.*,
	u.first_name || ' ' || u.last_name AS user_name,
	u.employee_id AS user_employee_id,
	u.department  AS user_department,
	t.name        AS tool_name,
	t.scan_code   AS tool_scan_code,
	t.category    AS tool_category,
	(r.status = 'approved' AND COALESCE(r.expected_return_time < NOW(), FALSE)) AS overdue`

func (r *Repo) ListRequests(ctx context.Context, f RequestFilter) (*RequestPage, error) {
	filtered := func() *gorm.DB {
		q := r.DB.WithContext(ctx).
			Table("requests r").
			Joins("JOIN users u ON u.id = r.user_id").
			Joins("JOIN tools t ON t.id = r.tool_id")
		if f.Status != "" {
			q = q.Where("r.status = ?", f.Status)
		}
		if f.UserID != 0 {
			q = q.Where("r.user_id = ?", f.UserID)
		}
		if f.ToolID != 0 {
			q = q.Where("r.tool_id = ?", f.ToolID)
		}
		if f.Overdue {
			q = q.Where("r.status = ? AND r.expected_return_time < NOW()", models.StatusApproved)
		}
		if f.From != nil {
			q = q.Where("r.request_time >= ?", *f.From)
		}
		if f.To != nil {
			q = q.Where("r.request_time < ?", *f.To)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, translate(err, "count requests")
	}

	q := filtered().Select(requestRowSelect).Order("r.request_time DESC, r.id DESC")
	if !f.All {
		page, size := normalizePage(f.Page, f.Size, 200)
		q = q.Offset((page - 1) * size).Limit(size)
	}
	var rows []RequestRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, translate(err, "list requests")
	}
	return &RequestPage{Requests: rows, Total: total}, nil
}
