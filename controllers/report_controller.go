package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportController struct {
	reports service.ReportService
	log     *zap.Logger
}

func NewReportController(reports service.ReportService, log *zap.Logger) *ReportController {
	return &ReportController{reports: reports, log: log}
}

// GET /admin/reports/requests.xlsx accepts the /admin/requests filters.
func (rc *ReportController) ExportRequests(c *gin.Context) {
	f, ok := requestFilter(c)
	if !ok {
		return
	}
	buf, name, err := rc.reports.ExportRequests(c.Request.Context(), f)
	if err != nil {
		fail(c, rc.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GET /admin/reports/due.ics
func (rc *ReportController) DueCalendar(c *gin.Context) {
	cal, err := rc.reports.DueCalendar(c.Request.Context())
	if err != nil {
		fail(c, rc.log, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="due-returns.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal))
}
