package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/config"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
	"Gin_postgres_redis_tool_tracker/session"
)

// Srv carries the dependencies of the admin passkey and account handlers.
type Srv struct {
	WA         *webauthn.WebAuthn
	Repo       *db.Repo
	Ceremonies *session.CeremonyStore
	AdminSess  *session.AdminSessionStore
	Cfg        *config.Config
	Log        *zap.Logger
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		WA:         a.WA,
		Repo:       a.Repo,
		Ceremonies: a.Ceremonies(),
		AdminSess:  a.AdminSessions(),
		Cfg:        a.Config,
		Log:        a.Logger,
	}
}

func (s *Srv) secureCookies() bool { return strings.HasPrefix(s.Cfg.Server.BaseURL, "https://") }

func (s *Srv) setSessionCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AdminSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookies(),
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AdminSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookies(),
	})
}

// issueSession records the login and sets a fresh session cookie.
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, a *models.Admin, ip, ua string) error {
	if err := s.Repo.TouchAdminLogin(ctx, a.ID, ip, ua); err != nil {
		s.Log.Warn("record admin login failed", zap.String("admin_id", a.ID), zap.Error(err))
	}
	id := uuid.NewString()
	if err := s.AdminSess.Create(ctx, id, a.ID, a.Email); err != nil {
		return err
	}
	s.setSessionCookie(w, id, s.AdminSess.TTL())
	return nil
}

// waAdmin adapts an admin and its passkeys to webauthn.User.
type waAdmin struct {
	admin models.Admin
	creds []webauthn.Credential
}

func (u *waAdmin) WebAuthnID() []byte {
	id, err := uuid.Parse(u.admin.ID)
	if err != nil {
		return []byte(u.admin.ID)
	}
	return id[:]
}
func (u *waAdmin) WebAuthnName() string                       { return u.admin.Email }
func (u *waAdmin) WebAuthnDisplayName() string                { return u.admin.DisplayName }
func (u *waAdmin) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func fromWaCred(adminID string, cred *webauthn.Credential) *models.Credential {
	return &models.Credential{
		AdminID:         adminID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}
}

func (s *Srv) withCredentials(ctx context.Context, a *models.Admin) (*waAdmin, error) {
	cs, err := s.Repo.LoadAdminCredentials(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waAdmin{admin: *a, creds: ws}, nil
}

func (s *Srv) loadWAAdminByID(ctx context.Context, id string) (*waAdmin, error) {
	a, err := s.Repo.FindAdminByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withCredentials(ctx, a)
}

func (s *Srv) loadWAAdminByEmail(ctx context.Context, email string) (*waAdmin, error) {
	a, err := s.Repo.FindAdminByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.withCredentials(ctx, a)
}
