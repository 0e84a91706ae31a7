package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/models"
)

var fixedNow = time.Now().UTC().Truncate(time.Second)

func testOptions() Options {
	return Options{
		LoanPeriod:   7 * 24 * time.Hour,
		AutoRegister: true,
		BaseURL:      "http://kiosk.local",
		Location:     time.UTC,
		Now:          func() time.Time { return fixedNow },
	}
}

func setupServices(opts Options) (*Services, *memStore) {
	store := newMemStore()
	return New(store, opts, zap.NewNop()), store
}

func seedUser(t *testing.T, store *memStore, first, last, employeeID string, active bool) *models.User {
	t.Helper()
	u := &models.User{
		FirstName:  first,
		LastName:   last,
		EmployeeID: models.OptionalString(employeeID),
		IsActive:   active,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedTool(t *testing.T, store *memStore, name, code string) *models.Tool {
	t.Helper()
	tool := &models.Tool{Name: name, ScanCode: code, Category: "Power tools"}
	if err := store.CreateTool(context.Background(), tool); err != nil {
		t.Fatalf("seed tool: %v", err)
	}
	return tool
}
