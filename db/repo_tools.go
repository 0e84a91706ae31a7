package db

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/models"
)

const scanCodeAttempts = 5

// ToolRow is a tool together with its current checkout, if any.
type ToolRow struct {
	models.Tool
	ActiveRequestID  *uint      `json:"active_request_id,omitempty"`
	HolderID         *uint      `json:"holder_id,omitempty"`
	HolderName       *string    `json:"holder_name,omitempty"`
	HolderEmployeeID *string    `json:"holder_employee_id,omitempty"`
	TakenAt          *time.Time `json:"taken_at,omitempty"`
	DueAt            *time.Time `json:"due_at,omitempty"`
	Overdue          bool       `json:"overdue"`
}

type ToolFilter struct {
	Q        string // name, scan code, serial number, model or manufacturer
	Category string
	Status   string // "", "available", "taken", "overdue"
	Page     int
	Size     int
}

type ToolPage struct {
	Tools []ToolRow `json:"tools"`
	Total int64     `json:"total"`
}

// CreateTool inserts a tool. An empty ScanCode is generated, and regenerated
// if it collides with an existing one.
func (r *Repo) CreateTool(ctx context.Context, t *models.Tool) error {
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Validation("tool name is required")
	}
	// a new tool has no checkout
	t.IsAvailable = true
	generated := t.ScanCode == ""
	for attempt := 0; ; attempt++ {
		if generated {
			t.ScanCode = models.NewScanCode()
		}
		err := r.DB.WithContext(ctx).Create(t).Error
		if err == nil {
			return nil
		}
		name, dup := uniqueConstraint(err)
		if generated && dup && name == "tools_scan_code_key" && attempt < scanCodeAttempts {
			t.ID = 0
			continue
		}
		return translate(err, "create tool")
	}
}

func (r *Repo) FindToolByID(ctx context.Context, id uint) (*models.Tool, error) {
	var t models.Tool
	if err := r.DB.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err, "find tool", "tool #%d not found", id)
	}
	return &t, nil
}

func (r *Repo) FindToolByScanCode(ctx context.Context, code string) (*models.Tool, error) {
	var t models.Tool
	if err := r.DB.WithContext(ctx).Where("scan_code = ?", code).First(&t).Error; err != nil {
		return nil, notFound(err, "find tool by code", "tool with code %q not found", code)
	}
	return &t, nil
}

// UpdateTool writes the editable columns. Scan code and availability are
// never touched here.
func (r *Repo) UpdateTool(ctx context.Context, t *models.Tool) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Tool{}).
			Where("id = ?", t.ID).
			Updates(map[string]any{
				"name":           t.Name,
				"description":    t.Description,
				"category":       t.Category,
				"location":       t.Location,
				"storage_place":  t.StoragePlace,
				"serial_number":  t.SerialNumber,
				"model":          t.Model,
				"manufacturer":   t.Manufacturer,
				"purchase_date":  t.PurchaseDate,
				"price":          t.Price,
				"warranty_until": t.WarrantyUntil,
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("tool #%d not found", t.ID)
		}
		return tx.First(t, t.ID).Error
	})
	return translate(err, "update tool")
}

// DeleteTool refuses while the tool is checked out.
func (r *Repo) DeleteTool(ctx context.Context, id uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tool
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, id).Error; err != nil {
			return notFound(err, "delete tool", "tool #%d not found", id)
		}
		var active int64
		if err := tx.Model(&models.Request{}).
			Where("tool_id = ? AND status = ?", id, models.StatusApproved).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflict("tool %q is checked out and cannot be deleted", t.Name)
		}
		return tx.Delete(&models.Tool{}, id).Error
	})
	return translate(err, "delete tool")
}

func (r *Repo) ListTools(ctx context.Context) ([]models.Tool, error) {
	var tools []models.Tool
	if err := r.DB.WithContext(ctx).Order("category, name, id").Find(&tools).Error; err != nil {
		return nil, translate(err, "list tools")
	}
	return tools, nil
}

const toolRowSelect = `
	t.*,
	r.id                   AS active_request_id,
	r.user_id              AS holder_id,
	u.first_name || ' ' || u.last_name AS holder_name,
	u.employee_id          AS holder_employee_id,
	r.approval_time        AS taken_at,
	r.expected_return_time AS due_at,
	COALESCE(r.expected_return_time < NOW(), FALSE) AS overdue`

// toolRows joins each tool with its approved request. The partial unique
// index keeps that to at most one row per tool.
func (r *Repo) toolRows(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table("tools t").
		Joins("LEFT JOIN requests r ON r.tool_id = t.id AND r.status = ?", models.StatusApproved).
		Joins("LEFT JOIN users u ON u.id = r.user_id")
}

func (r *Repo) ListToolsWithActiveRequest(ctx context.Context, f ToolFilter) (*ToolPage, error) {
	page, size := normalizePage(f.Page, f.Size, 200)

	filtered := func() *gorm.DB {
		q := r.toolRows(ctx)
		if s := strings.TrimSpace(f.Q); s != "" {
			like := likePattern(strings.ToLower(s))
			q = q.Where(`LOWER(t.name) LIKE ? OR LOWER(t.scan_code) LIKE ?
				OR LOWER(COALESCE(t.serial_number, '')) LIKE ?
				OR LOWER(t.model) LIKE ? OR LOWER(t.manufacturer) LIKE ?`,
				like, like, like, like, like)
		}
		if c := strings.TrimSpace(f.Category); c != "" {
			q = q.Where("t.category = ?", c)
		}
		switch f.Status {
		case "available":
			q = q.Where("t.is_available = TRUE")
		case "taken":
			q = q.Where("t.is_available = FALSE")
		case "overdue":
			q = q.Where("r.expected_return_time < NOW()")
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, translate(err, "count tools")
	}

	var rows []ToolRow
	if err := filtered().
		Select(toolRowSelect).
		Order("t.category, t.name, t.id").
		Offset((page - 1) * size).
		Limit(size).
		Scan(&rows).Error; err != nil {
		return nil, translate(err, "list tools")
	}
	return &ToolPage{Tools: rows, Total: total}, nil
}

// FindToolRow returns one tool with its current checkout.
func (r *Repo) FindToolRow(ctx context.Context, id uint) (*ToolRow, error) {
	var rows []ToolRow
	if err := r.toolRows(ctx).Select(toolRowSelect).Where("t.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, translate(err, "find tool")
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("tool #%d not found", id)
	}
	return &rows[0], nil
}
