//go:build integration

package db_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=postgres password=postgres dbname=tool_tracker_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect test database: %v\n", err)
		os.Exit(1)
	}
	if err := db.Migrate(testDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func newRepo(t *testing.T) *db.Repo {
	t.Helper()
	if err := testDB.Exec("TRUNCATE requests, tools, users, audit_logs RESTART IDENTITY CASCADE").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db.NewRepo(testDB)
}

func mustUser(t *testing.T, repo *db.Repo, first, last, emp string, active bool) *models.User {
	t.Helper()
	u := &models.User{FirstName: first, LastName: last, EmployeeID: models.OptionalString(emp), IsActive: active}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustTool(t *testing.T, repo *db.Repo, name, code string) *models.Tool {
	t.Helper()
	tool := &models.Tool{Name: name, ScanCode: code, Category: "Power tools"}
	if err := repo.CreateTool(context.Background(), tool); err != nil {
		t.Fatalf("create tool: %v", err)
	}
	return tool
}

func take(repo *db.Repo, userID, toolID uint) (*db.RequestDetail, error) {
	return repo.TakeTool(context.Background(), db.TakeInput{
		UserID:     userID,
		ToolID:     toolID,
		Now:        time.Now().UTC(),
		LoanPeriod: 7 * 24 * time.Hour,
	})
}

func toolAvailable(t *testing.T, repo *db.Repo, id uint) bool {
	t.Helper()
	tool, err := repo.FindToolByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find tool: %v", err)
	}
	return tool.IsAvailable
}

func TestConcurrentTakes(t *testing.T) {
	repo := newRepo(t)
	tool := mustTool(t, repo, "Drill X", "AB12CD34")

	const n = 8
	users := make([]*models.User, n)
	for i := range users {
		users[i] = mustUser(t, repo, "Worker", fmt.Sprintf("N%d", i), "", true)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, u := range users {
		wg.Add(1)
		go func(uid uint) {
			defer wg.Done()
			_, err := take(repo, uid, tool.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Fatalf("successes = %d, conflicts = %d", successes, conflicts)
	}
	var approved int64
	testDB.Model(&models.Request{}).Where("tool_id = ? AND status = ?", tool.ID, models.StatusApproved).Count(&approved)
	if approved != 1 {
		t.Errorf("approved requests = %d", approved)
	}
	if toolAvailable(t, repo, tool.ID) {
		t.Error("tool should be unavailable")
	}
}

func TestDoubleReturn(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	tool := mustTool(t, repo, "Drill X", "AB12CD34")
	user := mustUser(t, repo, "Ivan", "Petrov", "EMP001", true)

	d, err := take(repo, user.ID, tool.ID)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	in := db.ReturnInput{RequestID: d.ID, ConditionAfter: "scratched", Now: time.Now().UTC()}
	ret, err := repo.ReturnRequest(ctx, in)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if ret.Status != models.StatusReturned || ret.ConditionAfter != "scratched" || !ret.Tool.IsAvailable {
		t.Errorf("returned = %+v", ret)
	}

	_, err = repo.ReturnRequest(ctx, in)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("second return err = %v", err)
	}
	if !toolAvailable(t, repo, tool.ID) {
		t.Error("tool should stay available")
	}
}

func TestTake_InactiveUser(t *testing.T) {
	repo := newRepo(t)
	tool := mustTool(t, repo, "Drill X", "AB12CD34")
	user := mustUser(t, repo, "Oleg", "Sokolov", "", false)

	_, err := take(repo, user.ID, tool.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	var n int64
	testDB.Model(&models.Request{}).Count(&n)
	if n != 0 {
		t.Errorf("requests = %d, want none", n)
	}
}

func TestDeleteTool_CheckedOut(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	tool := mustTool(t, repo, "Drill X", "AB12CD34")
	user := mustUser(t, repo, "Ivan", "Petrov", "", true)
	d, err := take(repo, user.ID, tool.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteTool(ctx, tool.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("delete err = %v, want conflict", err)
	}

	if _, err := repo.ReturnRequest(ctx, db.ReturnInput{RequestID: d.ID, Now: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteTool(ctx, tool.ID); err != nil {
		t.Fatalf("delete after return: %v", err)
	}
	if _, err := repo.FindRequestByID(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("request history should cascade with the tool, err = %v", err)
	}
}

func TestDeleteUser_ReleasesTools(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	tool := mustTool(t, repo, "Drill X", "AB12CD34")
	user := mustUser(t, repo, "Ivan", "Petrov", "", true)
	if _, err := take(repo, user.ID, tool.ID); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if !toolAvailable(t, repo, tool.ID) {
		t.Error("tool held by a deleted user should become available")
	}
	var n int64
	testDB.Model(&models.Request{}).Count(&n)
	if n != 0 {
		t.Errorf("requests = %d, want cascade", n)
	}
}

func TestUserUniqueness(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	mustUser(t, repo, "Ivan", "Petrov", "EMP001", true)

	dup := &models.User{FirstName: "Other", LastName: "Person", EmployeeID: models.OptionalString("emp001"), IsActive: true}
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	found, err := repo.FindUserByName(ctx, "IVAN", "petrov", "")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if found.EmployeeIDValue() != "EMP001" {
		t.Errorf("found = %+v", found)
	}
	if _, err := repo.FindUserByName(ctx, "Ivan", "Petrov", "EMP999"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("mismatched employee id err = %v", err)
	}
}

func TestCreateTool_GeneratesScanCode(t *testing.T) {
	repo := newRepo(t)
	tool := &models.Tool{Name: "Tape"}
	if err := repo.CreateTool(context.Background(), tool); err != nil {
		t.Fatal(err)
	}
	if len(tool.ScanCode) != 8 || !tool.IsAvailable {
		t.Errorf("tool = %+v", tool)
	}

	clash := &models.Tool{Name: "Clash", ScanCode: tool.ScanCode}
	if err := repo.CreateTool(context.Background(), clash); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("explicit duplicate scan code err = %v", err)
	}
}

func TestStatsAndListings(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	a := mustTool(t, repo, "Drill X", "AB12CD34")
	mustTool(t, repo, "Tape", "CAFE0001")
	u := mustUser(t, repo, "Ivan", "Petrov", "", true)
	mustUser(t, repo, "Old", "Timer", "", false)
	if _, err := take(repo, u.ID, a.ID); err != nil {
		t.Fatal(err)
	}

	st, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.ToolsTotal != 2 || st.ToolsTaken != 1 || st.UsersInactive != 1 || st.ActiveRequests != 1 {
		t.Errorf("stats = %+v", st)
	}

	page, err := repo.ListToolsWithActiveRequest(ctx, db.ToolFilter{Status: "taken"})
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if page.Total != 1 || page.Tools[0].HolderName == nil || *page.Tools[0].HolderName != "Ivan Petrov" {
		t.Errorf("taken tools = %+v", page)
	}

	reqs, err := repo.ListRequests(ctx, db.RequestFilter{Status: models.StatusApproved})
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if reqs.Total != 1 || reqs.Requests[0].ToolScanCode != "AB12CD34" {
		t.Errorf("requests = %+v", reqs)
	}
}
