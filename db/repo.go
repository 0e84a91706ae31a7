package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/models"
)

// Store is the persistence surface the services depend on.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByName(ctx context.Context, first, last, employeeID string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	SetUserActive(ctx context.Context, id uint, active bool) (*models.User, error)
	DeleteUser(ctx context.Context, id uint) error
	ListUsers(ctx context.Context, f UserFilter) (*UserPage, error)

	CreateTool(ctx context.Context, t *models.Tool) error
	FindToolByID(ctx context.Context, id uint) (*models.Tool, error)
	FindToolByScanCode(ctx context.Context, code string) (*models.Tool, error)
	FindToolRow(ctx context.Context, id uint) (*ToolRow, error)
	UpdateTool(ctx context.Context, t *models.Tool) error
	DeleteTool(ctx context.Context, id uint) error
	ListTools(ctx context.Context) ([]models.Tool, error)
	ListToolsWithActiveRequest(ctx context.Context, f ToolFilter) (*ToolPage, error)

	ActiveRequestForTool(ctx context.Context, toolID uint) (*models.Request, error)
	FindRequestByID(ctx context.Context, id uint) (*models.Request, error)
	GetRequestDetail(ctx context.Context, id uint) (*RequestDetail, error)
	TakeTool(ctx context.Context, in TakeInput) (*RequestDetail, error)
	ReturnRequest(ctx context.Context, in ReturnInput) (*RequestDetail, error)
	ListRequests(ctx context.Context, f RequestFilter) (*RequestPage, error)
	Stats(ctx context.Context) (*Stats, error)

	AddAudit(ctx context.Context, entry *models.AuditLog) error
	ListAudit(ctx context.Context, page, size int) (*AuditPage, error)
}

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

var _ Store = (*Repo)(nil)

// Ping checks the database connection.
func (r *Repo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

const uniqueViolation = "23505"

var constraintMessages = map[string]string{
	"users_email_key":                "a user with this email already exists",
	"users_employee_id_key":          "a user with this employee id already exists",
	"tools_scan_code_key":            "scan code already in use",
	"tools_serial_number_key":        "a tool with this serial number already exists",
	"requests_one_approved_per_tool": "tool is already taken",
	"admins_email_key":               "an admin with this email already exists",
}

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// translate maps storage errors onto apperr kinds. Errors that already carry
// a kind pass through untouched.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if name, ok := uniqueConstraint(err); ok {
		msg, known := constraintMessages[name]
		if !known {
			msg = "duplicate value"
		}
		return apperr.Wrap(apperr.KindConflict, err, msg)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, err, op+": not found")
	}
	return apperr.Wrap(apperr.KindInternal, err, op)
}

// notFound turns gorm.ErrRecordNotFound into a NotFound with msg.
func notFound(err error, op, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return translate(err, op)
}

func normalizePage(page, size, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > max {
		size = 20
	}
	return page, size
}

func likePattern(q string) string {
	return fmt.Sprintf("%%%s%%", q)
}
