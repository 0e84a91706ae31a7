package controllers

import (
	"bytes"
	"context"

	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
	"Gin_postgres_redis_tool_tracker/service"
)

// ── Mock IdentityService ──

type mockIdentity struct {
	user    *models.User
	userErr error
	scan    *service.ScanResult
	scanErr error

	gotFirst, gotLast, gotEmployeeID string
}

func (m *mockIdentity) ResolveUser(_ context.Context, first, last, employeeID string) (*models.User, error) {
	m.gotFirst, m.gotLast, m.gotEmployeeID = first, last, employeeID
	return m.user, m.userErr
}
func (m *mockIdentity) ResolveTool(_ context.Context, _ string) (*models.Tool, error) {
	if m.scan == nil {
		return nil, m.scanErr
	}
	return &m.scan.Tool, m.scanErr
}
func (m *mockIdentity) ScanTool(_ context.Context, _ string) (*service.ScanResult, error) {
	return m.scan, m.scanErr
}

// ── Mock CheckoutService ──

type mockCheckout struct {
	take        *service.TakeResult
	takeErr     error
	ret         *service.ReturnResult
	retErr      error
	verify      *service.VerifyResult
	verifyErr   error
	gotTake     service.TakeCommand
	gotReturn   service.ReturnCommand
	gotActor    service.Actor
	gotReturnID uint
}

func (m *mockCheckout) Take(_ context.Context, cmd service.TakeCommand) (*service.TakeResult, error) {
	m.gotTake = cmd
	return m.take, m.takeErr
}
func (m *mockCheckout) Return(_ context.Context, cmd service.ReturnCommand) (*service.ReturnResult, error) {
	m.gotReturn = cmd
	return m.ret, m.retErr
}
func (m *mockCheckout) AdminReturn(_ context.Context, actor service.Actor, id uint) (*service.ReturnResult, error) {
	m.gotActor, m.gotReturnID = actor, id
	return m.ret, m.retErr
}
func (m *mockCheckout) VerifyReturn(_ context.Context, _ service.VerifyCommand) (*service.VerifyResult, error) {
	return m.verify, m.verifyErr
}

// ── Mock CatalogService ──

type mockCatalog struct {
	tools      *db.ToolPage
	tool       *db.ToolRow
	toolResult *service.ToolResult
	codes      []service.CodeGroup
	users      *db.UserPage
	user       *models.User
	userResult *service.UserResult
	requests   *db.RequestPage
	request    *db.RequestDetail
	stats      *db.Stats
	audit      *db.AuditPage
	message    string
	err        error

	gotToolFilter    db.ToolFilter
	gotUserFilter    db.UserFilter
	gotRequestFilter db.RequestFilter
	gotToolForm      service.ToolForm
	gotUserForm      service.UserForm
	gotActor         service.Actor
	gotID            uint
}

func (m *mockCatalog) ListTools(_ context.Context, f db.ToolFilter) (*db.ToolPage, error) {
	m.gotToolFilter = f
	return m.tools, m.err
}
func (m *mockCatalog) GetTool(_ context.Context, id uint) (*db.ToolRow, error) {
	m.gotID = id
	return m.tool, m.err
}
func (m *mockCatalog) CreateTool(_ context.Context, actor service.Actor, form service.ToolForm) (*service.ToolResult, error) {
	m.gotActor, m.gotToolForm = actor, form
	return m.toolResult, m.err
}
func (m *mockCatalog) UpdateTool(_ context.Context, actor service.Actor, id uint, form service.ToolForm) (*service.ToolResult, error) {
	m.gotActor, m.gotID, m.gotToolForm = actor, id, form
	return m.toolResult, m.err
}
func (m *mockCatalog) DeleteTool(_ context.Context, actor service.Actor, id uint) (string, error) {
	m.gotActor, m.gotID = actor, id
	return m.message, m.err
}
func (m *mockCatalog) ToolCodes(_ context.Context) ([]service.CodeGroup, error) {
	return m.codes, m.err
}
func (m *mockCatalog) ListUsers(_ context.Context, f db.UserFilter) (*db.UserPage, error) {
	m.gotUserFilter = f
	return m.users, m.err
}
func (m *mockCatalog) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.gotID = id
	return m.user, m.err
}
func (m *mockCatalog) CreateUser(_ context.Context, actor service.Actor, form service.UserForm) (*service.UserResult, error) {
	m.gotActor, m.gotUserForm = actor, form
	return m.userResult, m.err
}
func (m *mockCatalog) UpdateUser(_ context.Context, actor service.Actor, id uint, form service.UserForm) (*service.UserResult, error) {
	m.gotActor, m.gotID, m.gotUserForm = actor, id, form
	return m.userResult, m.err
}
func (m *mockCatalog) ToggleUser(_ context.Context, actor service.Actor, id uint) (*service.UserResult, error) {
	m.gotActor, m.gotID = actor, id
	return m.userResult, m.err
}
func (m *mockCatalog) DeleteUser(_ context.Context, actor service.Actor, id uint) (string, error) {
	m.gotActor, m.gotID = actor, id
	return m.message, m.err
}
func (m *mockCatalog) ListRequests(_ context.Context, f db.RequestFilter) (*db.RequestPage, error) {
	m.gotRequestFilter = f
	return m.requests, m.err
}
func (m *mockCatalog) GetRequest(_ context.Context, id uint) (*db.RequestDetail, error) {
	m.gotID = id
	return m.request, m.err
}
func (m *mockCatalog) Stats(_ context.Context) (*db.Stats, error) {
	return m.stats, m.err
}
func (m *mockCatalog) AuditLog(_ context.Context, _, _ int) (*db.AuditPage, error) {
	return m.audit, m.err
}

// ── Mock ReportService ──

type mockReports struct {
	buf       *bytes.Buffer
	filename  string
	calendar  string
	err       error
	gotFilter db.RequestFilter
}

func (m *mockReports) ExportRequests(_ context.Context, f db.RequestFilter) (*bytes.Buffer, string, error) {
	m.gotFilter = f
	return m.buf, m.filename, m.err
}
func (m *mockReports) DueCalendar(_ context.Context) (string, error) {
	return m.calendar, m.err
}

var (
	_ service.IdentityService = (*mockIdentity)(nil)
	_ service.CheckoutService = (*mockCheckout)(nil)
	_ service.CatalogService  = (*mockCatalog)(nil)
	_ service.ReportService   = (*mockReports)(nil)
)
