package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
)

const (
	dateLayout = "2006-01-02"
	// CustomCategory tells the form to use CustomCategory instead.
	CustomCategory = "custom"
)

type CatalogService interface {
	ListTools(ctx context.Context, f db.ToolFilter) (*db.ToolPage, error)
	GetTool(ctx context.Context, id uint) (*db.ToolRow, error)
	CreateTool(ctx context.Context, actor Actor, form ToolForm) (*ToolResult, error)
	UpdateTool(ctx context.Context, actor Actor, id uint, form ToolForm) (*ToolResult, error)
	DeleteTool(ctx context.Context, actor Actor, id uint) (string, error)
	ToolCodes(ctx context.Context) ([]CodeGroup, error)

	ListUsers(ctx context.Context, f db.UserFilter) (*db.UserPage, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	CreateUser(ctx context.Context, actor Actor, form UserForm) (*UserResult, error)
	UpdateUser(ctx context.Context, actor Actor, id uint, form UserForm) (*UserResult, error)
	ToggleUser(ctx context.Context, actor Actor, id uint) (*UserResult, error)
	DeleteUser(ctx context.Context, actor Actor, id uint) (string, error)

	ListRequests(ctx context.Context, f db.RequestFilter) (*db.RequestPage, error)
	GetRequest(ctx context.Context, id uint) (*db.RequestDetail, error)
	Stats(ctx context.Context) (*db.Stats, error)
	AuditLog(ctx context.Context, page, size int) (*db.AuditPage, error)
}

// ToolForm is the admin tool form. Numbers and dates arrive as text.
type ToolForm struct {
	Name           string `json:"name" form:"name"`
	Description    string `json:"description" form:"description"`
	Category       string `json:"category" form:"category"`
	CustomCategory string `json:"custom_category" form:"custom_category"`
	Location       string `json:"location" form:"location"`
	StoragePlace   string `json:"storage_place" form:"storage_place"`
	SerialNumber   string `json:"serial_number" form:"serial_number"`
	Model          string `json:"model" form:"model"`
	Manufacturer   string `json:"manufacturer" form:"manufacturer"`
	Price          string `json:"price" form:"price"`
	PurchaseDate   string `json:"purchase_date" form:"purchase_date"`
	WarrantyUntil  string `json:"warranty_until" form:"warranty_until"`
}

// ResolveCategory applies the "custom" choice.
func (f ToolForm) ResolveCategory() string {
	category := strings.TrimSpace(f.Category)
	if category != CustomCategory {
		return category
	}
	if c := strings.TrimSpace(f.CustomCategory); c != "" {
		return c
	}
	return db.UncategorizedLabel
}

func (f ToolForm) apply(t *models.Tool) error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return apperr.Validation("tool name is required")
	}

	var price *float64
	if p := strings.TrimSpace(f.Price); p != "" {
		v, err := strconv.ParseFloat(strings.Replace(p, ",", ".", 1), 64)
		if err != nil || v < 0 {
			return apperr.Validation("invalid price %q", p)
		}
		price = &v
	}
	purchase, err := parseDate(f.PurchaseDate, "purchase date")
	if err != nil {
		return err
	}
	warranty, err := parseDate(f.WarrantyUntil, "warranty date")
	if err != nil {
		return err
	}

	t.Name = name
	t.Description = strings.TrimSpace(f.Description)
	t.Category = f.ResolveCategory()
	t.Location = strings.TrimSpace(f.Location)
	t.StoragePlace = strings.TrimSpace(f.StoragePlace)
	t.SerialNumber = models.OptionalString(f.SerialNumber)
	t.Model = strings.TrimSpace(f.Model)
	t.Manufacturer = strings.TrimSpace(f.Manufacturer)
	t.Price = price
	t.PurchaseDate = purchase
	t.WarrantyUntil = warranty
	return nil
}

func parseDate(s, field string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, apperr.Validation("invalid %s %q, expected YYYY-MM-DD", field, s)
	}
	return &t, nil
}

// UserForm is the admin user form. A nil IsActive leaves the flag alone
// on update and means active on create.
type UserForm struct {
	FirstName  string `json:"first_name" form:"first_name"`
	LastName   string `json:"last_name" form:"last_name"`
	Email      string `json:"email" form:"email"`
	EmployeeID string `json:"employee_id" form:"employee_id"`
	Department string `json:"department" form:"department"`
	Phone      string `json:"phone" form:"phone"`
	Position   string `json:"position" form:"position"`
	IsActive   *bool  `json:"is_active" form:"is_active"`
}

func (f UserForm) apply(u *models.User) error {
	first, last := strings.TrimSpace(f.FirstName), strings.TrimSpace(f.LastName)
	if first == "" || last == "" {
		return apperr.Validation("first and last name are required")
	}
	email := models.OptionalString(f.Email)
	if email != nil {
		lower := strings.ToLower(*email)
		if !strings.Contains(lower, "@") {
			return apperr.Validation("invalid email %q", *email)
		}
		email = &lower
	}
	u.FirstName = first
	u.LastName = last
	u.Email = email
	u.EmployeeID = models.OptionalString(f.EmployeeID)
	u.Department = strings.TrimSpace(f.Department)
	u.Phone = strings.TrimSpace(f.Phone)
	u.Position = strings.TrimSpace(f.Position)
	if f.IsActive != nil {
		u.IsActive = *f.IsActive
	}
	return nil
}

type ToolResult struct {
	Tool    *models.Tool
	ScanURL string
	Message string
}

type UserResult struct {
	User    *models.User
	Message string
}

// CodeGroup lists the printable codes of one category.
type CodeGroup struct {
	Category string     `json:"category"`
	Tools    []ToolCode `json:"tools"`
}

type ToolCode struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	ScanCode    string `json:"scan_code"`
	ScanURL     string `json:"scan_url"`
	IsAvailable bool   `json:"is_available"`
}

type catalogService struct {
	store  db.Store
	opts   Options
	audit  *auditor
	logger *zap.Logger
}

func NewCatalogService(store db.Store, opts Options, a *auditor, logger *zap.Logger) CatalogService {
	return &catalogService{store: store, opts: opts, audit: a, logger: logger}
}

// Tools

func (s *catalogService) ListTools(ctx context.Context, f db.ToolFilter) (*db.ToolPage, error) {
	return s.store.ListToolsWithActiveRequest(ctx, f)
}

func (s *catalogService) GetTool(ctx context.Context, id uint) (*db.ToolRow, error) {
	return s.store.FindToolRow(ctx, id)
}

func (s *catalogService) CreateTool(ctx context.Context, actor Actor, form ToolForm) (*ToolResult, error) {
	t := &models.Tool{}
	if err := form.apply(t); err != nil {
		return nil, err
	}
	if err := s.store.CreateTool(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("tool created", zap.Uint("tool_id", t.ID), zap.String("scan_code", t.ScanCode))
	s.audit.record(ctx, actor, models.AuditToolCreated, "tool", t.ID, t.Name)
	return &ToolResult{
		Tool:    t,
		ScanURL: s.opts.ScanURL(t.ScanCode),
		Message: fmt.Sprintf("Tool %q added", t.Name),
	}, nil
}

func (s *catalogService) UpdateTool(ctx context.Context, actor Actor, id uint, form ToolForm) (*ToolResult, error) {
	t := &models.Tool{ID: id}
	if err := form.apply(t); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTool(ctx, t); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, models.AuditToolUpdated, "tool", t.ID, t.Name)
	return &ToolResult{
		Tool:    t,
		ScanURL: s.opts.ScanURL(t.ScanCode),
		Message: fmt.Sprintf("Tool %q updated", t.Name),
	}, nil
}

func (s *catalogService) DeleteTool(ctx context.Context, actor Actor, id uint) (string, error) {
	t, err := s.store.FindToolByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.store.DeleteTool(ctx, id); err != nil {
		return "", err
	}
	s.logger.Info("tool deleted", zap.Uint("tool_id", id))
	s.audit.record(ctx, actor, models.AuditToolDeleted, "tool", id, t.Name)
	return fmt.Sprintf("Tool %q deleted", t.Name), nil
}

// ToolCodes groups every tool's scan link by category, categories sorted.
func (s *catalogService) ToolCodes(ctx context.Context) ([]CodeGroup, error) {
	tools, err := s.store.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string][]ToolCode)
	for _, t := range tools {
		c := t.Category
		if c == "" {
			c = db.UncategorizedLabel
		}
		byCategory[c] = append(byCategory[c], ToolCode{
			ID:          t.ID,
			Name:        t.Name,
			ScanCode:    t.ScanCode,
			ScanURL:     s.opts.ScanURL(t.ScanCode),
			IsAvailable: t.IsAvailable,
		})
	}
	groups := make([]CodeGroup, 0, len(byCategory))
	for c, codes := range byCategory {
		groups = append(groups, CodeGroup{Category: c, Tools: codes})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups, nil
}

// Users

func (s *catalogService) ListUsers(ctx context.Context, f db.UserFilter) (*db.UserPage, error) {
	return s.store.ListUsers(ctx, f)
}

func (s *catalogService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.store.FindUserByID(ctx, id)
}

func (s *catalogService) CreateUser(ctx context.Context, actor Actor, form UserForm) (*UserResult, error) {
	u := &models.User{IsActive: true}
	if err := form.apply(u); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, models.AuditUserCreated, "user", u.ID, u.FullName())
	return &UserResult{User: u, Message: fmt.Sprintf("User %s added", u.FullName())}, nil
}

func (s *catalogService) UpdateUser(ctx context.Context, actor Actor, id uint, form UserForm) (*UserResult, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := form.apply(u); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, models.AuditUserUpdated, "user", u.ID, u.FullName())
	return &UserResult{User: u, Message: fmt.Sprintf("User %s updated", u.FullName())}, nil
}

func (s *catalogService) ToggleUser(ctx context.Context, actor Actor, id uint) (*UserResult, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u, err = s.store.SetUserActive(ctx, id, !u.IsActive)
	if err != nil {
		return nil, err
	}
	state := "deactivated"
	if u.IsActive {
		state = "activated"
	}
	s.audit.record(ctx, actor, models.AuditUserToggled, "user", u.ID, state)
	return &UserResult{User: u, Message: fmt.Sprintf("User %s %s", u.FullName(), state)}, nil
}

func (s *catalogService) DeleteUser(ctx context.Context, actor Actor, id uint) (string, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return "", err
	}
	s.logger.Info("user deleted", zap.Uint("user_id", id))
	s.audit.record(ctx, actor, models.AuditUserDeleted, "user", id, u.FullName())
	return fmt.Sprintf("User %s deleted", u.FullName()), nil
}

// Requests and reporting

func (s *catalogService) ListRequests(ctx context.Context, f db.RequestFilter) (*db.RequestPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", f.Status)
	}
	return s.store.ListRequests(ctx, f)
}

func (s *catalogService) GetRequest(ctx context.Context, id uint) (*db.RequestDetail, error) {
	return s.store.GetRequestDetail(ctx, id)
}

func (s *catalogService) Stats(ctx context.Context) (*db.Stats, error) {
	return s.store.Stats(ctx)
}

func (s *catalogService) AuditLog(ctx context.Context, page, size int) (*db.AuditPage, error) {
	return s.store.ListAudit(ctx, page, size)
}
