package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
)

type CheckoutService interface {
	Take(ctx context.Context, cmd TakeCommand) (*TakeResult, error)
	Return(ctx context.Context, cmd ReturnCommand) (*ReturnResult, error)
	AdminReturn(ctx context.Context, actor Actor, requestID uint) (*ReturnResult, error)
	VerifyReturn(ctx context.Context, cmd VerifyCommand) (*VerifyResult, error)
}

type TakeCommand struct {
	UserID          uint   `json:"user_id"`
	ToolID          uint   `json:"tool_id"`
	Purpose         string `json:"purpose"`
	ConditionBefore string `json:"condition_before"`
}

type TakeResult struct {
	Request   *db.RequestDetail
	Message   string
	Timestamp string
}

type ReturnCommand struct {
	RequestID      uint   `json:"request_id"`
	ConditionAfter string `json:"condition_after"`
	Notes          string `json:"notes"`
}

type ReturnResult struct {
	Request   *db.RequestDetail
	Message   string
	Timestamp string
}

type VerifyCommand struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	EmployeeID string `json:"employee_id"`
	ToolID     uint   `json:"tool_id"`
}

type VerifyResult struct {
	RequestID uint
	Holder    models.User
	Message   string
}

type checkoutService struct {
	store  db.Store
	opts   Options
	audit  *auditor
	logger *zap.Logger
}

func NewCheckoutService(store db.Store, opts Options, a *auditor, logger *zap.Logger) CheckoutService {
	return &checkoutService{store: store, opts: opts, audit: a, logger: logger}
}

func (s *checkoutService) Take(ctx context.Context, cmd TakeCommand) (*TakeResult, error) {
	if cmd.UserID == 0 || cmd.ToolID == 0 {
		return nil, apperr.Validation("user_id and tool_id are required")
	}
	now := s.opts.Now()
	d, err := s.store.TakeTool(ctx, db.TakeInput{
		UserID:          cmd.UserID,
		ToolID:          cmd.ToolID,
		Purpose:         cmd.Purpose,
		ConditionBefore: cmd.ConditionBefore,
		Now:             now,
		LoanPeriod:      s.opts.LoanPeriod,
	})
	if err != nil {
		s.logFailure("take", err, zap.Uint("user_id", cmd.UserID), zap.Uint("tool_id", cmd.ToolID))
		return nil, err
	}
	s.logger.Info("tool issued",
		zap.Uint("request_id", d.ID),
		zap.Uint("tool_id", d.ToolID),
		zap.Uint("user_id", d.UserID),
	)
	return &TakeResult{
		Request:   d,
		Message:   fmt.Sprintf("Tool %q issued to %s", d.Tool.Name, d.User.FullName()),
		Timestamp: s.opts.timestamp(now),
	}, nil
}

func (s *checkoutService) Return(ctx context.Context, cmd ReturnCommand) (*ReturnResult, error) {
	if cmd.RequestID == 0 {
		return nil, apperr.Validation("request_id is required")
	}
	return s.closeRequest(ctx, db.ReturnInput{
		RequestID:      cmd.RequestID,
		ConditionAfter: cmd.ConditionAfter,
		Notes:          cmd.Notes,
	})
}

func (s *checkoutService) AdminReturn(ctx context.Context, actor Actor, requestID uint) (*ReturnResult, error) {
	if requestID == 0 {
		return nil, apperr.Validation("request id is required")
	}
	res, err := s.closeRequest(ctx, db.ReturnInput{RequestID: requestID})
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, models.AuditRequestReturned, "request", requestID, res.Request.Tool.Name)
	return res, nil
}

func (s *checkoutService) closeRequest(ctx context.Context, in db.ReturnInput) (*ReturnResult, error) {
	in.Now = s.opts.Now()
	d, err := s.store.ReturnRequest(ctx, in)
	if err != nil {
		s.logFailure("return", err, zap.Uint("request_id", in.RequestID))
		return nil, err
	}
	s.logger.Info("tool returned",
		zap.Uint("request_id", d.ID),
		zap.Uint("tool_id", d.ToolID),
	)
	return &ReturnResult{
		Request:   d,
		Message:   fmt.Sprintf("Tool %q returned", d.Tool.Name),
		Timestamp: s.opts.timestamp(in.Now),
	}, nil
}

// VerifyReturn checks that the person at the kiosk is the one holding the
// tool. Employee ids are compared only when both sides have one.
func (s *checkoutService) VerifyReturn(ctx context.Context, cmd VerifyCommand) (*VerifyResult, error) {
	first, last := strings.TrimSpace(cmd.FirstName), strings.TrimSpace(cmd.LastName)
	if first == "" || last == "" || cmd.ToolID == 0 {
		return nil, apperr.Validation("first_name, last_name and tool_id are required")
	}

	active, err := s.store.ActiveRequestForTool(ctx, cmd.ToolID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, apperr.NotFound("no active request for this tool")
	}
	holder, err := s.store.FindUserByID(ctx, active.UserID)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(holder.FirstName, first) || !strings.EqualFold(holder.LastName, last) {
		return nil, apperr.Forbidden("details do not match the person who took the tool")
	}
	emp := strings.TrimSpace(cmd.EmployeeID)
	if emp != "" && holder.EmployeeID != nil && !strings.EqualFold(*holder.EmployeeID, emp) {
		return nil, apperr.Forbidden("employee id does not match")
	}

	return &VerifyResult{
		RequestID: active.ID,
		Holder:    *holder,
		Message:   "verification passed",
	}, nil
}

// logFailure logs unexpected errors loudly and predicted ones quietly.
func (s *checkoutService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if apperr.KindOf(err) == apperr.KindInternal {
		s.logger.Error("checkout failed", fields...)
		return
	}
	s.logger.Debug("checkout rejected", fields...)
}
