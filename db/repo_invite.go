package db

import (
	"context"
	"strings"
	"time"

	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/models"
)

func (r *Repo) CreateInvite(ctx context.Context, email, token string, expiresAt time.Time, createdBy string) (*models.Invite, error) {
	inv := &models.Invite{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
	}
	if err := r.DB.WithContext(ctx).Create(inv).Error; err != nil {
		return nil, translate(err, "create invite")
	}
	return inv, nil
}

func (r *Repo) GetInviteByToken(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, notFound(err, "find invite", "invite not found")
	}
	return &inv, nil
}

// MarkInviteUsed consumes the invite once; a second call is a Conflict.
func (r *Repo) MarkInviteUsed(ctx context.Context, token string) error {
	now := time.Now().UTC()
	res := r.DB.WithContext(ctx).Model(&models.Invite{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", &now)
	if res.Error != nil {
		return translate(res.Error, "use invite")
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("invite already used or not found")
	}
	return nil
}
