package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Gin_postgres_redis_tool_tracker/app"
	"Gin_postgres_redis_tool_tracker/db"
	"Gin_postgres_redis_tool_tracker/service"
)

type UserController struct {
	catalog service.CatalogService
	log     *zap.Logger
}

func NewUserController(catalog service.CatalogService, log *zap.Logger) *UserController {
	return &UserController{catalog: catalog, log: log}
}

// GET /admin/users?q=&department=&active=true|false&page=&size=
func (uc *UserController) ListUsers(c *gin.Context) {
	f := db.UserFilter{
		Q:          c.Query("q"),
		Department: c.Query("department"),
		Page:       queryInt(c, "page", 1),
		Size:       queryInt(c, "size", 50),
	}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "active must be true or false")
			return
		}
		f.Active = &active
	}
	res, err := uc.catalog.ListUsers(c.Request.Context(), f)
	if err != nil {
		fail(c, uc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"total": res.Total, "users": res.Users})
}

// GET /admin/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	u, err := uc.catalog.GetUser(c.Request.Context(), id)
	if err != nil {
		fail(c, uc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"user": u})
}

// POST /admin/users
func (uc *UserController) CreateUser(c *gin.Context) {
	var form service.UserForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid user form")
		return
	}
	res, err := uc.catalog.CreateUser(c.Request.Context(), actorFrom(c), form)
	if err != nil {
		fail(c, uc.log, err)
		return
	}
	respondOK(c, http.StatusCreated, app.H{"message": res.Message, "user": res.User})
}

// PUT /admin/users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var form service.UserForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "invalid user form")
		return
	}
	res, err := uc.catalog.UpdateUser(c.Request.Context(), actorFrom(c), id, form)
	if err != nil {
		fail(c, uc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"message": res.Message, "user": res.User})
}

// POST /admin/users/:id/toggle-status
func (uc *UserController) ToggleStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := uc.catalog.ToggleUser(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, uc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"message": res.Message, "is_active": res.User.IsActive})
}

// DELETE /admin/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	msg, err := uc.catalog.DeleteUser(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, uc.log, err)
		return
	}
	respondOK(c, http.StatusOK, app.H{"message": msg})
}
