package handler

import (
	"net/http"

	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	admin *service.AdminService
	log   *zap.Logger
}

func NewAdminHandler(admin *service.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

// Dashboard возвращает сводную статистику и последние записи
// @Summary      Admin dashboard
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} service.Dashboard
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /admin/dashboard [get]
func (h *AdminHandler) Dashboard(c *gin.Context) {
	dash, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "")
		return
	}
	c.JSON(http.StatusOK, dash)
}

// Users возвращает всех пользователей с количеством задач
// @Summary      List users
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        search     query string false "Search in name and email"
// @Param        role       query string false "user or admin"
// @Param        verified   query string false "1 or 0"
// @Param        sort_by    query string false "created_at, name, email or tasks_count"
// @Param        sort_order query string false "asc or desc"
// @Param        page       query int false "Page number"
// @Param        per_page   query int false "Page size, at most 50"
// @Success      200 {object} repository.Page[model.User]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /admin/users [get]
func (h *AdminHandler) Users(c *gin.Context) {
	verr := service.NewValidationError()
	pageNum, perPage := pageQuery(c, verr)
	if err := verr.OrNil(); err != nil {
		respondError(c, h.log, err, "")
		return
	}
	page, err := h.admin.ListUsers(c.Request.Context(), service.UserQuery{
		Search:    c.Query("search"),
		Role:      c.Query("role"),
		Verified:  c.Query("verified"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      pageNum,
		PerPage:   perPage,
	})
	if err != nil {
		respondError(c, h.log, err, "")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Tasks возвращает задачи всех пользователей
// @Summary      List all tasks
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        user_id         query string false "Owner ID"
// @Param        due_date_filter query string false "overdue, today, this_week or no_due_date"
// @Param        search          query string false "Search in title, description and tags"
// @Success      200 {object} repository.Page[model.Task]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /admin/tasks [get]
func (h *AdminHandler) Tasks(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	q, err := taskQuery(c)
	if err != nil {
		respondError(c, h.log, err, "")
		return
	}
	page, err := h.admin.ListTasks(c.Request.Context(), user, q)
	if err != nil {
		respondError(c, h.log, err, "Unauthorized. Admin access required.")
		return
	}
	c.JSON(http.StatusOK, page)
}
