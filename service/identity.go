package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
)

type IdentityService interface {
	ResolveUser(ctx context.Context, first, last, employeeID string) (*models.User, error)
	ResolveTool(ctx context.Context, scanCode string) (*models.Tool, error)
	ScanTool(ctx context.Context, scanCode string) (*ScanResult, error)
}

// ScanResult is what the kiosk shows after a code is scanned.
type ScanResult struct {
	Tool          models.Tool       `json:"tool"`
	ActiveRequest *db.RequestDetail `json:"active_request,omitempty"`
	ScanURL       string            `json:"scan_url"`
}

type identityService struct {
	store  db.Store
	opts   Options
	audit  *auditor
	logger *zap.Logger
}

func NewIdentityService(store db.Store, opts Options, a *auditor, logger *zap.Logger) IdentityService {
	return &identityService{store: store, opts: opts, audit: a, logger: logger}
}

// ResolveUser finds the user named at the kiosk. Unknown names are
// registered on the spot when auto registration is on.
func (s *identityService) ResolveUser(ctx context.Context, first, last, employeeID string) (*models.User, error) {
	first, last, employeeID = strings.TrimSpace(first), strings.TrimSpace(last), strings.TrimSpace(employeeID)
	if first == "" || last == "" {
		return nil, apperr.Validation("first and last name are required")
	}

	u, err := s.store.FindUserByName(ctx, first, last, employeeID)
	switch {
	case err == nil:
		if !u.IsActive {
			return nil, apperr.Forbidden("user %s is deactivated", u.FullName())
		}
		return u, nil
	case !errors.Is(err, apperr.ErrNotFound):
		s.logger.Error("find user by name failed", zap.Error(err))
		return nil, err
	}

	if !s.opts.AutoRegister {
		return nil, apperr.NotFound("user not found")
	}

	u = &models.User{
		FirstName:  first,
		LastName:   last,
		EmployeeID: models.OptionalString(employeeID),
		Department: s.opts.AutoRegisterDepartment,
		IsActive:   true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		s.logger.Warn("auto registration failed",
			zap.String("first_name", first),
			zap.String("last_name", last),
			zap.Error(err),
		)
		return nil, apperr.NotFound("user not found")
	}
	s.logger.Info("user auto-registered", zap.Uint("user_id", u.ID), zap.String("name", u.FullName()))
	s.audit.record(ctx, Actor{}, models.AuditUserAutoRegistered, "user", u.ID, u.FullName())
	return u, nil
}

func (s *identityService) ResolveTool(ctx context.Context, scanCode string) (*models.Tool, error) {
	code := strings.ToUpper(strings.TrimSpace(scanCode))
	if code == "" {
		return nil, apperr.Validation("scan code is required")
	}
	return s.store.FindToolByScanCode(ctx, code)
}

func (s *identityService) ScanTool(ctx context.Context, scanCode string) (*ScanResult, error) {
	t, err := s.ResolveTool(ctx, scanCode)
	if err != nil {
		return nil, err
	}
	res := &ScanResult{Tool: *t, ScanURL: s.opts.ScanURL(t.ScanCode)}
	if t.IsAvailable {
		return res, nil
	}

	active, err := s.store.ActiveRequestForTool(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		d, err := s.store.GetRequestDetail(ctx, active.ID)
		if err != nil {
			return nil, err
		}
		res.ActiveRequest = d
	}
	return res, nil
}
