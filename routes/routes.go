package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	svc := a.Services
	log := a.Logger
	s := controllers.GetSrv(a)

	kiosk := controllers.NewKioskController(svc.Identity, svc.Checkout, log)
	toolCtl := controllers.NewToolController(svc.Catalog, log)
	userCtl := controllers.NewUserController(svc.Catalog, log)
	reqCtl := controllers.NewRequestController(svc.Catalog, svc.Checkout, log)
	reportCtl := controllers.NewReportController(svc.Reports, log)
	adminCtl := controllers.GetAdminController(s)
	inviteCtl := controllers.GetInviteController(s)

	authMW := app.AuthRequired(a.AdminSessions(), a.Repo)
	ownerMW := app.OwnerOnly(a.Config)
	seenMW := app.TouchLastSeen(a.Repo, a.RDB, a.Config.Session.LastSeenThrottle, log)
	checkUserLimit := app.RateLimit(a.RDB, "check-user", a.Config.Kiosk.CheckUserLimit, a.Config.Kiosk.CheckUserWindow, log)
	verifyReturnLimit := app.RateLimit(a.RDB, "verify-return", a.Config.Kiosk.CheckUserLimit, a.Config.Kiosk.CheckUserWindow, log)

	r.GET("/healthz", func(c *app.Ctx) {
		if err := a.Repo.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, app.H{"ok": false, "db": err.Error()})
			return
		}
		if err := a.RDB.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, app.H{"ok": false, "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, app.H{"ok": true})
	})

	// Kiosk (public)
	api := r.Group("/api")
	{
		api.GET("/tools/scan/:code", kiosk.ScanTool)
		api.POST("/check-user", checkUserLimit, kiosk.CheckUser)
		api.POST("/create-request", kiosk.CreateRequest)
		api.POST("/verify-return", verifyReturnLimit, kiosk.VerifyReturn)
		api.POST("/return-tool", kiosk.ReturnTool)
	}

	// Passkeys
	wa := r.Group("/webauthn")
	{
		wa.POST("/register/begin", s.BeginRegistration)
		wa.POST("/register/finish", s.FinishRegistration)
		wa.POST("/login/begin", s.BeginLogin)
		wa.POST("/login/finish", s.FinishLogin)
	}
	waAuth := wa.Group("", authMW, seenMW)
	{
		waAuth.GET("/whoami", s.WhoAmI)
		waAuth.POST("/logout", s.Logout)
	}

	admin := r.Group("/admin", authMW, seenMW)
	{
		admin.POST("/return/:id", reqCtl.AdminReturn)

		admin.GET("/tools", toolCtl.ListTools)
		admin.GET("/tools/codes", toolCtl.ToolCodes)
		admin.GET("/tools/:id", toolCtl.GetTool)
		admin.POST("/tools", toolCtl.CreateTool)
		admin.PUT("/tools/:id", toolCtl.UpdateTool)
		admin.DELETE("/tools/:id", toolCtl.DeleteTool)

		admin.GET("/users", userCtl.ListUsers)
		admin.GET("/users/:id", userCtl.GetUser)
		admin.POST("/users", userCtl.CreateUser)
		admin.PUT("/users/:id", userCtl.UpdateUser)
		admin.POST("/users/:id/toggle-status", userCtl.ToggleStatus)
		admin.DELETE("/users/:id", userCtl.DeleteUser)

		admin.GET("/requests", reqCtl.ListRequests)
		admin.GET("/requests/:id", reqCtl.GetRequest)
		admin.GET("/stats", reqCtl.Stats)
		admin.GET("/audit", reqCtl.AuditLog)

		admin.GET("/reports/requests.xlsx", reportCtl.ExportRequests)
		admin.GET("/reports/due.ics", reportCtl.DueCalendar)

		admin.POST("/credentials/begin", s.BeginAddCredential)
		admin.POST("/credentials/finish", s.FinishAddCredential)

		admin.GET("/admins", adminCtl.ListAdmins)
	}

	owner := admin.Group("", ownerMW)
	{
		owner.POST("/invites", inviteCtl.CreateInvite)
		owner.DELETE("/admins/:id", adminCtl.DeleteAdmin)
	}
}
