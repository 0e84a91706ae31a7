package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_tool_tracker/config"
	"Gin_postgres_redis_tool_tracker/models"
	"Gin_postgres_redis_tool_tracker/session"
)

const AdminSessionCookie = "admin_session"

// Context keys set by AuthRequired.
const (
	CtxAdminID    = "adminID"
	CtxAdminEmail = "adminEmail"
)

type SessionReader interface {
	Get(ctx context.Context, id string) (*session.AdminSession, error)
	Delete(ctx context.Context, id string) error
}

type AdminFinder interface {
	FindAdminByID(ctx context.Context, id string) (*models.Admin, error)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, H{"success": false, "kind": "unauthorized", "message": msg})
}

// AuthRequired admits requests carrying a live admin session cookie.
func AuthRequired(sess SessionReader, admins AdminFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AdminSessionCookie)
		if err != nil || ck.Value == "" {
			unauthorized(c, "sign in required")
			return
		}
		as, err := sess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			unauthorized(c, "invalid session")
			return
		}

		// the admin may have been removed since the session was issued
		a, err := admins.FindAdminByID(c.Request.Context(), as.AdminID)
		if err != nil {
			_ = sess.Delete(c.Request.Context(), ck.Value)
			unauthorized(c, "invalid session")
			return
		}
		c.Set(CtxAdminID, a.ID)
		c.Set(CtxAdminEmail, a.Email)
		c.Next()
	}
}

// OwnerOnly limits a route to the admins listed in admin.emails. An empty
// list lets every admin through.
func OwnerOnly(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(cfg.Admin.Emails) == 0 {
			c.Next()
			return
		}
		if cfg.IsAdminEmail(c.GetString(CtxAdminEmail)) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, H{"success": false, "kind": "forbidden", "message": "owner access required"})
	}
}
