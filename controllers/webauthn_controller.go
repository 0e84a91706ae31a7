package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/models"
)

const ceremonyTimeout = 3 * time.Second

func passkeyRegistrationOptions() []webauthn.RegistrationOption {
	return []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
	}
}

func (s *Srv) usableInvite(ctx context.Context, token string) (*models.Invite, bool) {
	inv, err := s.Repo.GetInviteByToken(ctx, token)
	if err != nil || !inv.Usable(time.Now()) {
		return nil, false
	}
	return inv, true
}

// GET /webauthn/whoami
func (s *Srv) WhoAmI(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ceremonyTimeout)
	defer cancel()
	a, err := s.Repo.FindAdminByID(ctx, c.GetString(app.CtxAdminID))
	if err != nil {
		fail(c, s.Log, err)
		return
	}
	creds, _ := s.Repo.CountCredentials(ctx, a.ID)
	respondOK(c, http.StatusOK, app.H{
		"admin":       a,
		"credentials": creds,
		"owner":       s.Cfg.IsAdminEmail(a.Email),
	})
}

// POST /webauthn/logout
func (s *Srv) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AdminSessionCookie); err == nil && ck.Value != "" {
		if err := s.AdminSess.Delete(c.Request.Context(), ck.Value); err != nil {
			s.Log.Warn("delete admin session failed", zap.Error(err))
		}
	}
	s.clearSessionCookie(c.Writer)
	respondOK(c, http.StatusOK, nil)
}

// Registration is invite-only.

// POST /webauthn/register/begin
func (s *Srv) BeginRegistration(c *gin.Context) {
	var in struct {
		InviteToken string `json:"inviteToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "inviteToken is required")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), ceremonyTimeout)
	defer cancel()

	inv, ok := s.usableInvite(ctx, in.InviteToken)
	if !ok {
		fail(c, s.Log, apperr.Forbidden("invalid or expired invite"))
		return
	}

	// the admin account is named after the invited email
	a, err := s.Repo.FindOrCreateAdmin(ctx, inv.Email, uuid.NewString())
	if err != nil {
		fail(c, s.Log, err)
		return
	}
	wAdmin, err := s.withCredentials(ctx, a)
	if err != nil {
		fail(c, s.Log, err)
		return
	}
	opts, sd, err := s.WA.BeginRegistration(wAdmin, passkeyRegistrationOptions()...)
	if err != nil {
		fail(c, s.Log, apperr.Wrap(apperr.KindInternal, err, "begin registration"))
		return
	}
	if err := s.Ceremonies.SaveInviteReg(ctx, in.InviteToken, sd); err != nil {
		fail(c, s.Log, apperr.Wrap(apperr.KindInternal, err, "save registration"))
		return
	}
	respondOK(c, http.StatusOK, app.H{"opts": opts})
}

// POST /webauthn/register/finish?inviteToken=
func (s *Srv) FinishRegistration(c *gin.Context) {
	token := c.Query("inviteToken")
	if token == "" {
		badRequest(c, "missing inviteToken")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), ceremonyTimeout)
	defer cancel()

	inv, ok := s.usableInvite(ctx, token)
	if !ok {
		fail(c, s.Log, apperr.Forbidden("invalid or expired invite"))
		return
	}
	wAdmin, err := s.loadWAAdminByEmail(ctx, inv.Email)
	if err != nil {
		fail(c, s.Log, err)
		return
	}
	sd, err := s.Ceremonies.LoadInviteReg(ctx, token)
	if err != nil {
		badRequest(c, "registration expired or invalid")
		return
	}

	cred, err := s.WA.FinishRegistration(wAdmin, *sd, c.Request)
	if err != nil {
		badRequest(c, "passkey registration failed")
		return
	}
	if err := s.Repo.AddCredential(ctx, fromWaCred(wAdmin.admin.ID, cred)); err != nil {
		fail(c, s.Log, err)
		return
	}
	s.Ceremonies.DelInviteReg(ctx, token)
	if err := s.Repo.MarkInviteUsed(ctx, token); err != nil && !errors.Is(err, apperr.ErrConflict) {
		s.Log.Warn("mark invite used failed", zap.Error(err))
	}
	s.Log.Info("admin registered", zap.String("admin_id", wAdmin.admin.ID), zap.String("email", wAdmin.admin.Email))

	if err := s.issueSession(ctx, c.Writer, &wAdmin.admin, c.ClientIP(), c.Request.UserAgent()); err != nil {
		fail(c, s.Log, apperr.Wrap(apperr.KindInternal, err, "create admin session"))
		return
	}
	respondOK(c, http.StatusOK, app.H{"email": wAdmin.admin.Email})
}

// A signed-in admin can add more passkeys.

// POST /admin/credentials/begin
func (s *Srv) BeginAddCredential(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ceremonyTimeout)
	defer cancel()

	wAdmin, err := s.loadWAAdminByID(ctx, c.GetString(app.CtxAdminID))
	if err != nil {
		fail(c, s.Log, err)
		return
	}
	opts, sd, err := s.WA.BeginRegistration(wAdmin, passkeyRegistrationOptions()...)
	if err != nil {
		fail(c, s.Log, apperr.Wrap(apperr.KindInternal, err, "begin registration"))
		return
	}
	if err := s.Ceremonies.SaveAddCredential(ctx, wAdmin.admin.ID, sd); err != nil {
		fail(c, s.Log, apperr.Wrap(apperr.KindInternal, err, "save registration"))
		return
	}
	respondOK(c, http.StatusOK, app.H{"opts": opts})
}

// POST /admin/credentials/finish
func (s *Srv) FinishAddCredential(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ceremonyTimeout)
	defer cancel()

	wAdmin, err := s.loadWAAdminByID(ctx, c.GetString(app.CtxAdminID))
	if err != nil {
		fail(c, s.Log, err)
		return
	}
	sd, err := s.Ceremonies.LoadAddCredential(ctx, wAdmin.admin.ID)
	if err != nil {
		badRequest(c, "registration expired or invalid")
		return
	}
	cred, err := s.WA.FinishRegistration(wAdmin, *sd, c.Request)
	if err != nil {
		badRequest(c, "passkey registration failed")
		return
	}
	if err := s.Repo.AddCredential(ctx, fromWaCred(wAdmin.admin.ID, cred)); err != nil {
		fail(c, s.Log, err)
		return
	}
	s.Ceremonies.DelAddCredential(ctx, wAdmin.admin.ID)
	respondOK(c, http.StatusOK, nil)
}

// Login

type loginBeginReq struct {
	Email        string `json:"email"`
	Discoverable bool   `json:"discoverable"`
}

// POST /webauthn/login/begin
func (s *Srv) BeginLogin(c *gin.Context) {
	var req loginBeginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), ceremonyTimeout)
	defer cancel()

	var (
		opts *protocol.CredentialAssertion
		sd   *webauthn.SessionData
		err  error
	)
	if req.Discoverable || req.Email == "" {
		opts, sd, err = s.WA.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationRequired))
	} else {
		wAdmin, lookupErr := s.loadWAAdminByEmail(ctx, req.Email)
		if lookupErr != nil {
			fail(c, s.Log, lookupErr)
			return
		}
		opts, sd, err = s.WA.BeginLogin(wAdmin, webauthn.WithUserVerification(protocol.VerificationRequired))
	}
	if err != nil {
		fail(c, s.Log, apperr.Wrap(apperr.KindInternal, err, "begin login"))
		return
	}

	sid := uuid.NewString()
	if err := s.Ceremonies.SaveLogin(ctx, sid, sd); err != nil {
		fail(c, s.Log, apperr.Wrap(apperr.KindInternal, err, "save login"))
		return
	}
	respondOK(c, http.StatusOK, app.H{"options": opts, "sessionId": sid})
}

// POST /webauthn/login/finish?sessionId=&email=
func (s *Srv) FinishLogin(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		badRequest(c, "missing sessionId")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), ceremonyTimeout)
	defer cancel()

	sd, err := s.Ceremonies.LoadLogin(ctx, sid)
	if err != nil {
		badRequest(c, "login expired or invalid")
		return
	}

	var (
		admin *models.Admin
		cred  *webauthn.Credential
	)
	if email := c.Query("email"); email != "" {
		wAdmin, err := s.loadWAAdminByEmail(ctx, email)
		if err != nil {
			fail(c, s.Log, err)
			return
		}
		cred, err = s.WA.FinishLogin(wAdmin, *sd, c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, app.H{"success": false, "kind": "unauthorized", "message": "passkey verification failed"})
			return
		}
		admin = &wAdmin.admin
	} else {
		handler := func(rawID, _ []byte) (webauthn.User, error) {
			a, err := s.Repo.FindAdminByCredentialID(ctx, rawID)
			if err != nil {
				return nil, protocol.ErrBadRequest.WithDetails("credential not found")
			}
			w, err := s.withCredentials(ctx, a)
			if err != nil {
				return nil, err
			}
			return w, nil
		}
		user, found, err := s.WA.FinishPasskeyLogin(handler, *sd, c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, app.H{"success": false, "kind": "unauthorized", "message": "passkey verification failed"})
			return
		}
		admin = &user.(*waAdmin).admin
		cred = found
	}
	if err := s.Repo.UpdateCredentialCounter(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning); err != nil {
		s.Log.Warn("update sign count failed", zap.Error(err))
	}
	if cred.Authenticator.CloneWarning {
		s.Log.Warn("passkey clone warning", zap.String("admin_id", admin.ID))
	}
	s.Ceremonies.DelLogin(ctx, sid)

	if err := s.issueSession(ctx, c.Writer, admin, c.ClientIP(), c.Request.UserAgent()); err != nil {
		fail(c, s.Log, apperr.Wrap(apperr.KindInternal, err, "create admin session"))
		return
	}
	respondOK(c, http.StatusOK, app.H{"redirect": "/admin"})
}
