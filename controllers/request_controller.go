package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/models"
	"Gin_postgres_redis_tool_tracker/service"
)

type RequestController struct {
	catalog  service.CatalogService
	checkout service.CheckoutService
	log      *zap.Logger
}

func NewRequestController(catalog service.CatalogService, checkout service.CheckoutService, log *zap.Logger) *RequestController {
	return &RequestController{catalog: catalog, checkout: checkout, log: log}
}

// requestFilter reads the shared list and export filters. from and to are
// calendar days; to is inclusive.
func requestFilter(c *gin.Context) (db.RequestFilter, bool) {
	f := db.RequestFilter{
		Status:  models.RequestStatus(c.Query("status")),
		UserID:  queryUint(c, "user_id"),
		ToolID:  queryUint(c, "tool_id"),
		Overdue: c.Query("overdue") == "true",
		Page:    queryInt(c, "page", 1),
		Size:    queryInt(c, "size", 50),
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(c, "from must be YYYY-MM-DD")
			return f, false
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(c, "to must be YYYY-MM-DD")
			return f, false
		}
		end := t.AddDate(0, 0, 1)
		f.To = &end
	}
	return f, true
}

// GET /admin/requests
func (rc *RequestController) ListRequests(c *gin.Context) {
	f, ok := requestFilter(c)
	if !ok {
		return
	}
	res, err := rc.catalog.ListRequests(c.Request.Context(), f)
	if err != nil {
		fail(c, rc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"total": res.Total, "requests": res.Requests})
}

// GET /admin/requests/:id
func (rc *RequestController) GetRequest(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	d, err := rc.catalog.GetRequest(c.Request.Context(), id)
	if err != nil {
		fail(c, rc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"request": d})
}

// POST /admin/return/:id
func (rc *RequestController) AdminReturn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := rc.checkout.AdminReturn(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, rc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"message": res.Message, "timestamp": res.Timestamp})
}

// GET /admin/stats
func (rc *RequestController) Stats(c *gin.Context) {
	st, err := rc.catalog.Stats(c.Request.Context())
	if err != nil {
		fail(c, rc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"stats": st})
}

// GET /admin/audit?page=&size=
func (rc *RequestController) AuditLog(c *gin.Context) {
	res, err := rc.catalog.AuditLog(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "size", 50))
	if err != nil {
		fail(c, rc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"total": res.Total, "entries": res.Entries})
}
