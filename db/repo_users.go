package db

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/models"
)

type UserFilter struct {
	Q          string // name, email or employee id
	Department string
	Active     *bool
	Page       int
	Size       int
}

type UserPage struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
}

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUserUnique(tx, u, 0); err != nil {
			return err
		}
		return tx.Create(u).Error
	})
	return translate(err, "create user")
}

// checkUserUnique reports a readable Conflict before the insert hits the
// unique constraints. The constraints still decide under concurrency.
func checkUserUnique(tx *gorm.DB, u *models.User, exceptID uint) error {
	if u.Email != nil {
		var n int64
		if err := tx.Model(&models.User{}).
			Where("LOWER(email) = LOWER(?) AND id <> ?", *u.Email, exceptID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("a user with email %s already exists", *u.Email)
		}
	}
	if u.EmployeeID != nil {
		var n int64
		if err := tx.Model(&models.User{}).
			Where("LOWER(employee_id) = LOWER(?) AND id <> ?", *u.EmployeeID, exceptID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("a user with employee id %s already exists", *u.EmployeeID)
		}
	}
	return nil
}

func (r *Repo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err, "find user", "user #%d not found", id)
	}
	return &u, nil
}

// FindUserByName matches first and last name case-insensitively. When
// employeeID is given it must match too. Active users win over inactive ones.
func (r *Repo) FindUserByName(ctx context.Context, first, last, employeeID string) (*models.User, error) {
	q := r.DB.WithContext(ctx).
		Where("LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?)", strings.TrimSpace(first), strings.TrimSpace(last))
	if emp := strings.TrimSpace(employeeID); emp != "" {
		q = q.Where("LOWER(employee_id) = LOWER(?)", emp)
	}
	var u models.User
	if err := q.Order("is_active DESC, id").First(&u).Error; err != nil {
		return nil, notFound(err, "find user by name", "user not found")
	}
	return &u, nil
}

func (r *Repo) UpdateUser(ctx context.Context, u *models.User) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUserUnique(tx, u, u.ID); err != nil {
			return err
		}
		res := tx.Model(&models.User{}).
			Where("id = ?", u.ID).
			Select("first_name", "last_name", "email", "employee_id", "department", "phone", "position", "is_active", "updated_at").
			Updates(map[string]any{
				"first_name":  u.FirstName,
				"last_name":   u.LastName,
				"email":       u.Email,
				"employee_id": u.EmployeeID,
				"department":  u.Department,
				"phone":       u.Phone,
				"position":    u.Position,
				"is_active":   u.IsActive,
				"updated_at":  time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("user #%d not found", u.ID)
		}
		return tx.First(u, u.ID).Error
	})
	return translate(err, "update user")
}

func (r *Repo) SetUserActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	var u models.User
	res := r.DB.WithContext(ctx).Model(&u).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, translate(res.Error, "set user active")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("user #%d not found", id)
	}
	return &u, nil
}

// DeleteUser removes the user and, through the foreign key, their requests.
// Tools they still hold are released first.
func (r *Repo) DeleteUser(ctx context.Context, id uint) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error; err != nil {
			return notFound(err, "delete user", "user #%d not found", id)
		}
		held := tx.Model(&models.Request{}).
			Select("tool_id").
			Where("user_id = ? AND status = ?", id, models.StatusApproved)
		if err := tx.Model(&models.Tool{}).
			Where("id IN (?)", held).
			Updates(map[string]any{"is_available": true, "updated_at": time.Now().UTC()}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	return translate(err, "delete user")
}

func (r *Repo) ListUsers(ctx context.Context, f UserFilter) (*UserPage, error) {
	page, size := normalizePage(f.Page, f.Size, 100)

	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if q := strings.TrimSpace(f.Q); q != "" {
		like := likePattern(strings.ToLower(q))
		tx = tx.Where(`LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?
			OR LOWER(COALESCE(email, '')) LIKE ? OR LOWER(COALESCE(employee_id, '')) LIKE ?`,
			like, like, like, like)
	}
	if d := strings.TrimSpace(f.Department); d != "" {
		tx = tx.Where("department = ?", d)
	}
	if f.Active != nil {
		tx = tx.Where("is_active = ?", *f.Active)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, translate(err, "count users")
	}
	var users []models.User
	if err := tx.Order("last_name, first_name, id").
		Offset((page - 1) * size).
		Limit(size).
		Find(&users).Error; err != nil {
		return nil, translate(err, "list users")
	}
	return &UserPage{Users: users, Total: total}, nil
}
