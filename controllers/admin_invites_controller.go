package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/config"
	"Gin_postgres_redis_tool_tracker/models"
)

type InviteController struct{ *Srv }

func GetInviteController(s *Srv) *InviteController { return &InviteController{Srv: s} }

// POST /admin/invites
func (ic *InviteController) CreateInvite(c *gin.Context) {
	var in struct {
		Email   string `json:"email" binding:"required,email"`
		Expires int    `json:"expiresDays"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "a valid email is required")
		return
	}
	if in.Expires <= 0 {
		in.Expires = 1
	}

	token, err := app.NewInviteToken()
	if err != nil {
		fail(c, ic.Log, apperr.Wrap(apperr.KindInternal, err, "generate invite token"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	actor := actorFrom(c)
	inv, err := ic.Repo.CreateInvite(ctx, in.Email, token, time.Now().AddDate(0, 0, in.Expires), actor.Email)
	if err != nil {
		fail(c, ic.Log, err)
		return
	}

	entry := &models.AuditLog{
		ActorEmail: actor.Email,
		Action:     models.AuditInviteCreated,
		TargetType: "invite",
		TargetID:   strconv.FormatUint(uint64(inv.ID), 10),
		Detail:     inv.Email,
	}
	if actor.ID != "" {
		entry.ActorID = &actor.ID
	}
	if err := ic.Repo.AddAudit(ctx, entry); err != nil {
		ic.Log.Warn("write audit entry failed", zap.Error(err))
	}

	link := app.InviteLink(ic.Cfg.Server.BaseURL, token)
	if err := sendInviteMail(&ic.Cfg.Mail, inv.Email, link, in.Expires, ic.Log); err != nil {
		ic.Log.Warn("invite email failed", zap.String("email", inv.Email), zap.Error(err))
	}

	respondOK(c, http.StatusCreated, app.H{
		"token":  token,
		"link":   link,
		"invite": inv,
	})
}

// sendInviteMail mails the invite link. Without SMTP settings the link is
// only logged.
func sendInviteMail(conf *config.MailConfig, toEmail, link string, expiresDays int, log *zap.Logger) error {
	if conf.SMTPHost == "" || (conf.Username == "" && conf.From == "") {
		log.Info("smtp not configured, invite link logged instead",
			zap.String("email", toEmail),
			zap.String("link", link),
			zap.Int("expires_days", expiresDays),
		)
		return nil
	}

	fromAddr := conf.From
	if fromAddr == "" {
		fromAddr = conf.Username
	}
	subject := fmt.Sprintf("%s admin invitation", conf.AppName)
	msg := buildInviteMIME(conf.AppName, fromAddr, toEmail, subject, inviteHTML(conf.AppName, link, expiresDays))

	auth := smtp.PlainAuth("", conf.Username, conf.Password, conf.SMTPHost)
	addr := fmt.Sprintf("%s:%d", conf.SMTPHost, conf.SMTPPort)
	return smtp.SendMail(addr, auth, fromAddr, []string{toEmail}, []byte(msg))
}

func inviteHTML(appName, link string, expiresDays int) string {
	return fmt.Sprintf(`
<div style="font-family:Arial,sans-serif; font-size:14px; color:#222">
  <p>Hello,</p>
  <p>You have been invited to administer <b>%s</b>. Open the link below to create your passkey and sign in:</p>
  <p>
    <a href="%s" style="display:inline-block; padding:10px 16px; background:#2563EB; color:#fff; text-decoration:none; border-radius:6px;">
      Accept invitation
    </a>
  </p>
  <p>Or open this link directly:</p>
  <p><a href="%s">%s</a></p>
  <p>This invitation expires in %d day(s).</p>
  <hr/>
  <p style="color:#666">If you did not expect this email, you can ignore it.</p>
</div>
`, appName, link, link, link, expiresDays)
}

func buildInviteMIME(fromName, fromAddr, to, subject, html string) string {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", fromName, fromAddr),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + html
}
