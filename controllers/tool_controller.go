package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/service"
)

type ToolController struct {
	catalog service.CatalogService
	log     *zap.Logger
}

func NewToolController(catalog service.CatalogService, log *zap.Logger) *ToolController {
	return &ToolController{catalog: catalog, log: log}
}

// GET /admin/tools?q=&category=&status=available|taken|overdue&page=&size=
func (tc *ToolController) ListTools(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", "available", "taken", "overdue":
	default:
		badRequest(c, "unknown status "+status)
		return
	}
	res, err := tc.catalog.ListTools(c.Request.Context(), db.ToolFilter{
		Q:        c.Query("q"),
		Category: c.Query("category"),
		Status:   status,
		Page:     queryInt(c, "page", 1),
		Size:     queryInt(c, "size", 50),
	})
	if err != nil {
		fail(c, tc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"total": res.Total, "tools": res.Tools})
}

// GET /admin/tools/:id
func (tc *ToolController) GetTool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	row, err := tc.catalog.GetTool(c.Request.Context(), id)
	if err != nil {
		fail(c, tc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"tool": row})
}

// POST /admin/tools
func (tc *ToolController) CreateTool(c *gin.Context) {
	var form service.ToolForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid tool form")
		return
	}
	res, err := tc.catalog.CreateTool(c.Request.Context(), actorFrom(c), form)
	if err != nil {
		fail(c, tc.log, err)
		return
	}
	respondOK(c, http.StatusCreated, app.H{"message": res.Message, "tool": res.Tool, "scan_url": res.ScanURL})
}

// PUT /admin/tools/:id
func (tc *ToolController) UpdateTool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var form service.ToolForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid tool form")
		return
	}
	res, err := tc.catalog.UpdateTool(c.Request.Context(), actorFrom(c), id, form)
	if err != nil {
		fail(c, tc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"message": res.Message, "tool": res.Tool, "scan_url": res.ScanURL})
}

// DELETE /admin/tools/:id
func (tc *ToolController) DeleteTool(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	msg, err := tc.catalog.DeleteTool(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, tc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"message": msg})
}

// GET /admin/tools/codes
func (tc *ToolController) ToolCodes(c *gin.Context) {
	groups, err := tc.catalog.ToolCodes(c.Request.Context())
	if err != nil {
		fail(c, tc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"categories": groups})
}
