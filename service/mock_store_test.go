package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
)

// memStore is an in-memory db.Store. One mutex stands in for the row locks.
type memStore struct {
	mu       sync.Mutex
	users    map[uint]*models.User
	tools    map[uint]*models.Tool
	requests map[uint]*models.Request
	audit    []models.AuditLog
	nextID   uint

	// failCreateUser makes CreateUser fail, to exercise error paths.
	failCreateUser error
	failAudit      error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uint]*models.User),
		tools:    make(map[uint]*models.Tool),
		requests: make(map[uint]*models.Request),
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func eqFoldPtr(a *string, b string) bool {
	return a != nil && strings.EqualFold(*a, b)
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateUser != nil {
		return m.failCreateUser
	}
	for _, other := range m.users {
		if u.Email != nil && eqFoldPtr(other.Email, *u.Email) {
			return apperr.Conflict("a user with email %s already exists", *u.Email)
		}
		if u.EmployeeID != nil && eqFoldPtr(other.EmployeeID, *u.EmployeeID) {
			return apperr.Conflict("a user with employee id %s already exists", *u.EmployeeID)
		}
	}
	u.ID = m.id()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user #%d not found", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) FindUserByName(_ context.Context, first, last, employeeID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var match []*models.User
	for _, u := range m.users {
		if !strings.EqualFold(u.FirstName, first) || !strings.EqualFold(u.LastName, last) {
			continue
		}
		if employeeID != "" && !eqFoldPtr(u.EmployeeID, employeeID) {
			continue
		}
		match = append(match, u)
	}
	if len(match) == 0 {
		return nil, apperr.NotFound("user not found")
	}
	sort.Slice(match, func(i, j int) bool {
		if match[i].IsActive != match[j].IsActive {
			return match[i].IsActive
		}
		return match[i].ID < match[j].ID
	})
	cp := *match[0]
	return &cp, nil
}

func (m *memStore) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return apperr.NotFound("user #%d not found", u.ID)
	}
	for id, other := range m.users {
		if id == u.ID {
			continue
		}
		if u.Email != nil && eqFoldPtr(other.Email, *u.Email) {
			return apperr.Conflict("a user with email %s already exists", *u.Email)
		}
		if u.EmployeeID != nil && eqFoldPtr(other.EmployeeID, *u.EmployeeID) {
			return apperr.Conflict("a user with employee id %s already exists", *u.EmployeeID)
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) SetUserActive(_ context.Context, id uint, active bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user #%d not found", id)
	}
	u.IsActive = active
	cp := *u
	return &cp, nil
}

func (m *memStore) DeleteUser(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperr.NotFound("user #%d not found", id)
	}
	for rid, r := range m.requests {
		if r.UserID != id {
			continue
		}
		if r.Status == models.StatusApproved {
			m.tools[r.ToolID].IsAvailable = true
		}
		delete(m.requests, rid)
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) ListUsers(_ context.Context, f db.UserFilter) (*db.UserPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if f.Active != nil && u.IsActive != *f.Active {
			continue
		}
		if f.Q != "" && !strings.Contains(strings.ToLower(u.FullName()), strings.ToLower(f.Q)) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &db.UserPage{Users: out, Total: int64(len(out))}, nil
}

func (m *memStore) CreateTool(_ context.Context, t *models.Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.TrimSpace(t.Name) == "" {
		return apperr.Validation("tool name is required")
	}
	if t.ScanCode == "" {
		t.ScanCode = models.NewScanCode()
	}
	for _, other := range m.tools {
		if other.ScanCode == t.ScanCode {
			return apperr.Conflict("scan code already in use")
		}
		if t.SerialNumber != nil && other.SerialNumber != nil && *other.SerialNumber == *t.SerialNumber {
			return apperr.Conflict("a tool with this serial number already exists")
		}
	}
	t.IsAvailable = true
	t.ID = m.id()
	cp := *t
	m.tools[t.ID] = &cp
	return nil
}

func (m *memStore) FindToolByID(_ context.Context, id uint) (*models.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[id]
	if !ok {
		return nil, apperr.NotFound("tool #%d not found", id)
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) FindToolByScanCode(_ context.Context, code string) (*models.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tools {
		if t.ScanCode == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("tool with code %q not found", code)
}

func (m *memStore) toolRow(t *models.Tool) db.ToolRow {
	row := db.ToolRow{Tool: *t}
	for _, r := range m.requests {
		if r.ToolID == t.ID && r.Status == models.StatusApproved {
			id, uid := r.ID, r.UserID
			name := m.users[r.UserID].FullName()
			row.ActiveRequestID, row.HolderID, row.HolderName = &id, &uid, &name
			row.TakenAt, row.DueAt = r.ApprovalTime, r.ExpectedReturnTime
			row.Overdue = r.IsOverdue(time.Now())
		}
	}
	return row
}

func (m *memStore) FindToolRow(_ context.Context, id uint) (*db.ToolRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[id]
	if !ok {
		return nil, apperr.NotFound("tool #%d not found", id)
	}
	row := m.toolRow(t)
	return &row, nil
}

func (m *memStore) UpdateTool(_ context.Context, t *models.Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tools[t.ID]
	if !ok {
		return apperr.NotFound("tool #%d not found", t.ID)
	}
	t.ScanCode = cur.ScanCode
	t.IsAvailable = cur.IsAvailable
	t.CreatedAt = cur.CreatedAt
	cp := *t
	m.tools[t.ID] = &cp
	return nil
}

func (m *memStore) DeleteTool(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[id]
	if !ok {
		return apperr.NotFound("tool #%d not found", id)
	}
	for _, r := range m.requests {
		if r.ToolID == id && r.Status == models.StatusApproved {
			return apperr.Conflict("tool %q is checked out and cannot be deleted", t.Name)
		}
	}
	for rid, r := range m.requests {
		if r.ToolID == id {
			delete(m.requests, rid)
		}
	}
	delete(m.tools, id)
	return nil
}

func (m *memStore) ListTools(_ context.Context) ([]models.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Tool, 0, len(m.tools))
	for _, t := range m.tools {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListToolsWithActiveRequest(_ context.Context, f db.ToolFilter) (*db.ToolPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []db.ToolRow
	for _, t := range m.tools {
		row := m.toolRow(t)
		switch f.Status {
		case "available":
			if !t.IsAvailable {
				continue
			}
		case "taken":
			if t.IsAvailable {
				continue
			}
		case "overdue":
			if !row.Overdue {
				continue
			}
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return &db.ToolPage{Tools: rows, Total: int64(len(rows))}, nil
}

func (m *memStore) ActiveRequestForTool(_ context.Context, toolID uint) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ToolID == toolID && r.Status == models.StatusApproved {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindRequestByID(_ context.Context, id uint) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, apperr.NotFound("request #%d not found", id)
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) detail(r *models.Request) *db.RequestDetail {
	return &db.RequestDetail{
		Request: *r,
		User:    *m.users[r.UserID],
		Tool:    *m.tools[r.ToolID],
		Overdue: r.IsOverdue(time.Now()),
	}
}

func (m *memStore) GetRequestDetail(_ context.Context, id uint) (*db.RequestDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, apperr.NotFound("request #%d not found", id)
	}
	return m.detail(r), nil
}

func (m *memStore) TakeTool(_ context.Context, in db.TakeInput) (*db.RequestDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[in.ToolID]
	if !ok {
		return nil, apperr.NotFound("tool not found")
	}
	u, ok := m.users[in.UserID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	if !u.IsActive {
		return nil, apperr.Forbidden("user %s is deactivated", u.FullName())
	}
	if !t.IsAvailable {
		return nil, apperr.Conflict("tool %q is already taken", t.Name)
	}
	r := &models.Request{
		UserID:          u.ID,
		ToolID:          t.ID,
		Purpose:         strings.TrimSpace(in.Purpose),
		ConditionBefore: strings.TrimSpace(in.ConditionBefore),
	}
	if err := r.Approve(in.Now, in.LoanPeriod); err != nil {
		return nil, err
	}
	r.ID = m.id()
	m.requests[r.ID] = r
	t.IsAvailable = false
	return m.detail(r), nil
}

func (m *memStore) ReturnRequest(_ context.Context, in db.ReturnInput) (*db.RequestDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[in.RequestID]
	if !ok {
		return nil, apperr.NotFound("request #%d not found", in.RequestID)
	}
	next := *r
	if err := next.Return(in.Now, in.ConditionAfter, in.Notes); err != nil {
		return nil, err
	}
	*r = next
	m.tools[r.ToolID].IsAvailable = true
	return m.detail(r), nil
}

func (m *memStore) ListRequests(_ context.Context, f db.RequestFilter) (*db.RequestPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []db.RequestRow
	for _, r := range m.requests {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		if f.ToolID != 0 && r.ToolID != f.ToolID {
			continue
		}
		u, t := m.users[r.UserID], m.tools[r.ToolID]
		rows = append(rows, db.RequestRow{
			Request:        *r,
			UserName:       u.FullName(),
			UserEmployeeID: u.EmployeeID,
			UserDepartment: u.Department,
			ToolName:       t.Name,
			ToolScanCode:   t.ScanCode,
			ToolCategory:   t.Category,
			Overdue:        r.IsOverdue(time.Now()),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return &db.RequestPage{Requests: rows, Total: int64(len(rows))}, nil
}

func (m *memStore) Stats(_ context.Context) (*db.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &db.Stats{}
	for _, t := range m.tools {
		s.ToolsTotal++
		if t.IsAvailable {
			s.ToolsAvailable++
		} else {
			s.ToolsTaken++
		}
	}
	for _, u := range m.users {
		s.UsersTotal++
		if u.IsActive {
			s.UsersActive++
		} else {
			s.UsersInactive++
		}
	}
	for _, r := range m.requests {
		if r.Status == models.StatusApproved {
			s.ActiveRequests++
		}
	}
	return s, nil
}

func (m *memStore) AddAudit(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAudit != nil {
		return m.failAudit
	}
	m.audit = append(m.audit, *entry)
	return nil
}

func (m *memStore) ListAudit(_ context.Context, _, _ int) (*db.AuditPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.AuditLog(nil), m.audit...)
	return &db.AuditPage{Entries: out, Total: int64(len(out))}, nil
}

var _ db.Store = (*memStore)(nil)

// availabilityHolds checks that every tool is unavailable exactly when it
// has an approved request.
func (m *memStore) availabilityHolds() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tools {
		active := 0
		for _, r := range m.requests {
			if r.ToolID == t.ID && r.Status == models.StatusApproved {
				active++
			}
		}
		if active > 1 {
			return errors.New("more than one approved request for tool " + t.ScanCode)
		}
		if t.IsAvailable == (active == 1) {
			return errors.New("availability out of sync for tool " + t.ScanCode)
		}
	}
	return nil
}
