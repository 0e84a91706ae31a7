package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/apperr"
	"Gin_postgres_redis_tool_tracker/service"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the failure body for err. Internal errors are logged and
// their detail is not sent to the client.
func fail(c *gin.Context, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("requestID")),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(kind), app.H{
		"success": false,
		"kind":    string(kind),
		"message": apperr.MessageOf(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, app.H{
		"success": false,
		"kind":    string(apperr.KindValidation),
		"message": msg,
	})
}

func respondOK(c *gin.Context, status int, body app.H) {
	if body == nil {
		body = app.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

// idParam reads a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// actorFrom reads the admin identity set by app.AuthRequired.
func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{ID: c.GetString(app.CtxAdminID), Email: c.GetString(app.CtxAdminEmail)}
}
