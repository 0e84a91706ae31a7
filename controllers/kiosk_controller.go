package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/models"
	"Gin_postgres_redis_tool_tracker/service"
)

// KioskController serves the public scan, take and return flow.
type KioskController struct {
	identity service.IdentityService
	checkout service.CheckoutService
	log      *zap.Logger
}

func NewKioskController(identity service.IdentityService, checkout service.CheckoutService, log *zap.Logger) *KioskController {
	return &KioskController{identity: identity, checkout: checkout, log: log}
}

type userSummary struct {
	ID         uint    `json:"id"`
	FullName   string  `json:"full_name"`
	Department string  `json:"department"`
	EmployeeID *string `json:"employee_id"`
}

func summarize(u *models.User) userSummary {
	return userSummary{ID: u.ID, FullName: u.FullName(), Department: u.Department, EmployeeID: u.EmployeeID}
}

// GET /api/tools/scan/:code
func (kc *KioskController) ScanTool(c *gin.Context) {
	res, err := kc.identity.ScanTool(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, kc.log, err)
		return
	}
	body := app.H{"tool": res.Tool, "scan_url": res.ScanURL}
	if res.ActiveRequest != nil {
		body["active_request"] = res.ActiveRequest
	}
	respondOK(c, http.StatusOK, body)
}

// POST /api/check-user
func (kc *KioskController) CheckUser(c *gin.Context) {
	var in struct {
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		EmployeeID string `json:"employee_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := kc.identity.ResolveUser(c.Request.Context(), in.FirstName, in.LastName, in.EmployeeID)
	if err != nil {
		fail(c, kc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"user": summarize(u)})
}

// POST /api/create-request
func (kc *KioskController) CreateRequest(c *gin.Context) {
	var in service.TakeCommand
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := kc.checkout.Take(c.Request.Context(), in)
	if err != nil {
		fail(c, kc.log, err)
		return
	}
	respondOK(c, http.StatusCreated, app.H{
		"message":    res.Message,
		"request_id": res.Request.ID,
		"timestamp":  res.Timestamp,
	})
}

// POST /api/verify-return
func (kc *KioskController) VerifyReturn(c *gin.Context) {
	var in service.VerifyCommand
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := kc.checkout.VerifyReturn(c.Request.Context(), in)
	if err != nil {
		fail(c, kc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{
		"message":    res.Message,
		"request_id": res.RequestID,
		"user":       summarize(&res.Holder),
	})
}

// POST /api/return-tool
func (kc *KioskController) ReturnTool(c *gin.Context) {
	var in service.ReturnCommand
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := kc.checkout.Return(c.Request.Context(), in)
	if err != nil {
		fail(c, kc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{
		"message":   res.Message,
		"timestamp": res.Timestamp,
	})
}
