package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/config"
	"Gin_postgres_redis_tool_tracker/models"
)

type InviteIssuer interface {
	CountAdmins(ctx context.Context) (int64, error)
	CreateInvite(ctx context.Context, email, token string, expiresAt time.Time, createdBy string) (*models.Invite, error)
}

// NewInviteToken returns 32 hex characters of crypto randomness.
func NewInviteToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// InviteLink is the front-end URL that redeems an invite token.
func InviteLink(baseURL, token string) string {
	return fmt.Sprintf("%s/login?inviteToken=%s", baseURL, token)
}

// BootstrapFirstAdmin issues an invite for admin.bootstrap_email while no
// admin exists yet and logs the link.
func BootstrapFirstAdmin(ctx context.Context, cfg *config.Config, repo InviteIssuer, log *zap.Logger) error {
	if cfg.Admin.BootstrapEmail == "" {
		return nil
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	token, err := NewInviteToken()
	if err != nil {
		return err
	}
	if _, err := repo.CreateInvite(ctx, cfg.Admin.BootstrapEmail, token, time.Now().Add(24*time.Hour), "bootstrap"); err != nil {
		return err
	}
	log.Warn("no admin registered, bootstrap invite created",
		zap.String("email", cfg.Admin.BootstrapEmail),
		zap.String("link", InviteLink(cfg.Server.BaseURL, token)),
	)
	return nil
}
