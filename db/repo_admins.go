package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/models"
)

type AdminPage struct {
	Admins []models.Admin `json:"admins"`
	Total  int64          `json:"total"`
}

func (r *Repo) TouchAdminLogin(ctx context.Context, adminID, ip, ua string) error {
	return r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{
			"last_login_at": gorm.Expr("NOW()"),
			"last_seen_at":  gorm.Expr("NOW()"),
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
			"last_login_ip": ip,
			"last_login_ua": ua,
		}).Error
}

func (r *Repo) TouchAdminSeen(ctx context.Context, adminID string) error {
	return r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Update("last_seen_at", gorm.Expr("NOW()")).Error
}

func (r *Repo) FindAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	var a models.Admin
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "find admin", "admin not found")
	}
	return &a, nil
}

func (r *Repo) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&a).Error; err != nil {
		return nil, notFound(err, "find admin", "admin not found")
	}
	return &a, nil
}

// FindOrCreateAdmin returns the admin registered under email, creating it
// with newID when missing.
func (r *Repo) FindOrCreateAdmin(ctx context.Context, email, newID string) (*models.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var a models.Admin
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a = models.Admin{ID: newID, Email: email, DisplayName: email}
		if err := r.DB.WithContext(ctx).Create(&a).Error; err != nil {
			return nil, translate(err, "create admin")
		}
		return &a, nil
	}
	if err != nil {
		return nil, translate(err, "find admin")
	}
	return &a, nil
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Admin{}).Count(&n).Error
	return n, translate(err, "count admins")
}

func (r *Repo) ListAdmins(ctx context.Context, q string, page, size int) (*AdminPage, error) {
	page, size = normalizePage(page, size, 100)

	tx := r.DB.WithContext(ctx).Model(&models.Admin{})
	if q = strings.TrimSpace(q); q != "" {
		like := likePattern(strings.ToLower(q))
		tx = tx.Where("LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, translate(err, "count admins")
	}
	var admins []models.Admin
	if err := tx.Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&admins).Error; err != nil {
		return nil, translate(err, "list admins")
	}
	return &AdminPage{Admins: admins, Total: total}, nil
}

// DeleteAdmin removes the admin; credentials go with it through the
// foreign key.
func (r *Repo) DeleteAdmin(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.Admin{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "delete admin")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("admin not found")
	}
	return nil
}

// Credentials

func (r *Repo) AddCredential(ctx context.Context, c *models.Credential) error {
	return translate(r.DB.WithContext(ctx).Create(c).Error, "add credential")
}

func (r *Repo) LoadAdminCredentials(ctx context.Context, adminID string) ([]models.Credential, error) {
	var cs []models.Credential
	if err := r.DB.WithContext(ctx).Where("admin_id = ?", adminID).Find(&cs).Error; err != nil {
		return nil, translate(err, "load credentials")
	}
	return cs, nil
}

func (r *Repo) CountCredentials(ctx context.Context, adminID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("admin_id = ?", adminID).
		Count(&n).Error
	return n, translate(err, "count credentials")
}

func (r *Repo) UpdateCredentialCounter(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error {
	return r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("credential_id = ?", credID).
		Updates(map[string]any{
			"sign_count":    newCount,
			"clone_warning": cloneWarn,
			"last_used_at":  gorm.Expr("NOW()"),
		}).Error
}

func (r *Repo) FindAdminByCredentialID(ctx context.Context, credID []byte) (*models.Admin, error) {
	var c models.Credential
	if err := r.DB.WithContext(ctx).Where("credential_id = ?", credID).First(&c).Error; err != nil {
		return nil, notFound(err, "find credential", "credential not found")
	}
	return r.FindAdminByID(ctx, c.AdminID)
}
