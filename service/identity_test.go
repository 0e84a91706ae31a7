package service

import (
	"context"
	"errors"
	"testing"

	"Gin_postgres_redis_tool_tracker/apperr"
)

func TestIdentity_ResolveUser_Existing(t *testing.T) {
	svc, store := setupServices(testOptions())
	want := seedUser(t, store, "Ivan", "Petrov", "EMP001", true)

	got, err := svc.Identity.ResolveUser(context.Background(), " ivan ", "PETROV", "")
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("resolved user %d, want %d", got.ID, want.ID)
	}
	if len(store.users) != 1 {
		t.Errorf("no user should be created, have %d", len(store.users))
	}
}

func TestIdentity_ResolveUser_EmployeeIDMustMatch(t *testing.T) {
	svc, store := setupServices(testOptions())
	seedUser(t, store, "Ivan", "Petrov", "EMP001", true)

	got, err := svc.Identity.ResolveUser(context.Background(), "Ivan", "Petrov", "emp001")
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if got.EmployeeIDValue() != "EMP001" {
		t.Errorf("employee id = %q", got.EmployeeIDValue())
	}
}

func TestIdentity_ResolveUser_AutoRegistersOnce(t *testing.T) {
	svc, store := setupServices(testOptions())
	ctx := context.Background()

	first, err := svc.Identity.ResolveUser(ctx, "Anna", "Smirnova", "")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if first.Department != "auto-registered" || !first.IsActive {
		t.Errorf("auto-registered user = %+v", first)
	}
	second, err := svc.Identity.ResolveUser(ctx, "anna", "smirnova", "")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second resolve created user %d, want %d", second.ID, first.ID)
	}
	if len(store.users) != 1 {
		t.Errorf("users = %d, want 1", len(store.users))
	}
	if len(store.audit) != 1 {
		t.Errorf("audit entries = %d, want 1", len(store.audit))
	}
}

func TestIdentity_ResolveUser_Inactive(t *testing.T) {
	svc, store := setupServices(testOptions())
	seedUser(t, store, "Oleg", "Sokolov", "", false)

	_, err := svc.Identity.ResolveUser(context.Background(), "Oleg", "Sokolov", "")
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if len(store.users) != 1 {
		t.Error("an inactive match must not trigger auto registration")
	}
}

func TestIdentity_ResolveUser_Validation(t *testing.T) {
	svc, _ := setupServices(testOptions())
	_, err := svc.Identity.ResolveUser(context.Background(), "  ", "Petrov", "")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestIdentity_ResolveUser_AutoRegisterDisabled(t *testing.T) {
	opts := testOptions()
	opts.AutoRegister = false
	svc, store := setupServices(opts)

	_, err := svc.Identity.ResolveUser(context.Background(), "New", "Person", "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if len(store.users) != 0 {
		t.Error("no user should be created")
	}
}

func TestIdentity_ResolveUser_CreateFailureIsNotFound(t *testing.T) {
	svc, store := setupServices(testOptions())
	store.failCreateUser = errors.New("disk full")

	_, err := svc.Identity.ResolveUser(context.Background(), "New", "Person", "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if apperr.MessageOf(err) != "user not found" {
		t.Errorf("message = %q", apperr.MessageOf(err))
	}
}

func TestIdentity_ResolveUser_EmployeeIDTakenByOther(t *testing.T) {
	svc, store := setupServices(testOptions())
	seedUser(t, store, "Maria", "Sidorova", "EMP002", true)

	_, err := svc.Identity.ResolveUser(context.Background(), "Ivan", "Petrov", "EMP002")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestIdentity_ResolveTool(t *testing.T) {
	svc, store := setupServices(testOptions())
	seedTool(t, store, "Drill X", "AB12CD34")

	tool, err := svc.Identity.ResolveTool(context.Background(), "ab12cd34")
	if err != nil {
		t.Fatalf("ResolveTool: %v", err)
	}
	if tool.Name != "Drill X" {
		t.Errorf("name = %q", tool.Name)
	}

	_, err = svc.Identity.ResolveTool(context.Background(), "ZZZZ0000")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if apperr.MessageOf(err) != `tool with code "ZZZZ0000" not found` {
		t.Errorf("message = %q", apperr.MessageOf(err))
	}
}

func TestIdentity_ScanTool_ShowsHolder(t *testing.T) {
	svc, store := setupServices(testOptions())
	ctx := context.Background()
	tool := seedTool(t, store, "Drill X", "AB12CD34")
	user := seedUser(t, store, "Ivan", "Petrov", "", true)

	res, err := svc.Identity.ScanTool(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("ScanTool: %v", err)
	}
	if res.ActiveRequest != nil {
		t.Error("available tool should have no active request")
	}
	if res.ScanURL != "http://kiosk.local/tool/AB12CD34" {
		t.Errorf("scan url = %q", res.ScanURL)
	}

	if _, err := svc.Checkout.Take(ctx, TakeCommand{UserID: user.ID, ToolID: tool.ID}); err != nil {
		t.Fatalf("Take: %v", err)
	}
	res, err = svc.Identity.ScanTool(ctx, "AB12CD34")
	if err != nil {
		t.Fatalf("ScanTool: %v", err)
	}
	if res.ActiveRequest == nil || res.ActiveRequest.User.ID != user.ID {
		t.Fatalf("active request = %+v", res.ActiveRequest)
	}
}
