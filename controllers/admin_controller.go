package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/models"
)

type AdminController struct{ *Srv }

func GetAdminController(s *Srv) *AdminController { return &AdminController{Srv: s} }

// GET /admin/admins?q=&page=&size=
func (ac *AdminController) ListAdmins(c *gin.Context) {
	res, err := ac.Repo.ListAdmins(c.Request.Context(), c.Query("q"), queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		fail(c, ac.Log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"total": res.Total, "admins": res.Admins})
}

// DELETE /admin/admins/:id
func (ac *AdminController) DeleteAdmin(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		badRequest(c, "invalid admin id")
		return
	}
	// deleting yourself would lock the last admin out
	if id == c.GetString(app.CtxAdminID) {
		fail(c, ac.Log, apperr.Forbidden("cannot delete yourself"))
		return
	}

	ctx := c.Request.Context()
	target, err := ac.Repo.FindAdminByID(ctx, id)
	if err != nil {
		fail(c, ac.Log, err)
		return
	}
	if ac.Cfg.IsAdminEmail(target.Email) {
		fail(c, ac.Log, apperr.Forbidden("cannot delete an owner"))
		return
	}
	if err := ac.Repo.DeleteAdmin(ctx, id); err != nil {
		fail(c, ac.Log, err)
		return
	}
	if err := ac.AdminSess.RevokeAllForAdmin(ctx, id); err != nil {
		ac.Log.Warn("revoke admin sessions failed", zap.String("admin_id", id), zap.Error(err))
	}

	actor := actorFrom(c)
	entry := &models.AuditLog{
		ActorEmail: actor.Email,
		Action:     models.AuditAdminDeleted,
		TargetType: "admin",
		TargetID:   id,
		Detail:     target.Email,
	}
	if actor.ID != "" {
		entry.ActorID = &actor.ID
	}
	if err := ac.Repo.AddAudit(ctx, entry); err != nil {
		ac.Log.Warn("write audit entry failed", zap.Error(err))
	}
	respondOK(c, http.StatusOK, app.H{"message": "Admin " + target.Email + " deleted"})
}
