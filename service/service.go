// Package service holds the checkout rules on top of db.Store.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
)

// TimestampLayout is the layout of confirmation timestamps.
const TimestampLayout = "02.01.2006 15:04:05"

type Options struct {
	LoanPeriod             time.Duration
	AutoRegister           bool
	AutoRegisterDepartment string
	BaseURL                string
	Location               *time.Location
	Now                    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.LoanPeriod <= 0 {
		o.LoanPeriod = 7 * 24 * time.Hour
	}
	if o.AutoRegisterDepartment == "" {
		o.AutoRegisterDepartment = "auto-registered"
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// ScanURL is the link a printed code points to.
func (o Options) ScanURL(code string) string {
	return fmt.Sprintf("%s/tool/%s", o.BaseURL, code)
}

func (o Options) timestamp(t time.Time) string {
	return t.In(o.Location).Format(TimestampLayout)
}

// Actor is the admin behind a change. The zero Actor is the kiosk.
type Actor struct {
	ID    string
	Email string
}

func (a Actor) auditID() *string {
	if a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}

// Services bundles every service the HTTP layer needs.
type Services struct {
	Identity IdentityService
	Checkout CheckoutService
	Catalog  CatalogService
	Reports  ReportService
}

func New(store db.Store, opts Options, logger *zap.Logger) *Services {
	opts = opts.withDefaults()
	a := &auditor{store: store, logger: logger}
	return &Services{
		Identity: NewIdentityService(store, opts, a, logger),
		Checkout: NewCheckoutService(store, opts, a, logger),
		Catalog:  NewCatalogService(store, opts, a, logger),
		Reports:  NewReportService(store, opts, logger),
	}
}

// auditor writes audit entries. A failed write is logged and never fails the
// operation it describes.
type auditor struct {
	store  db.Store
	logger *zap.Logger
}

func (a *auditor) record(ctx context.Context, actor Actor, action, targetType string, targetID uint, detail string) {
	entry := &models.AuditLog{
		ActorID:    actor.auditID(),
		ActorEmail: actor.Email,
		Action:     action,
		TargetType: targetType,
		TargetID:   fmt.Sprint(targetID),
		Detail:     detail,
	}
	if err := a.store.AddAudit(ctx, entry); err != nil {
		a.logger.Warn("audit write failed",
			zap.String("action", action),
			zap.Uint("target_id", targetID),
			zap.Error(err),
		)
	}
}
