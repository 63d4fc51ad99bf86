package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"taskmanager/internal/middleware"
	"taskmanager/internal/model"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	tasks *service.TaskService
	log   *zap.Logger
}

func NewTaskHandler(tasks *service.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

// TaskRequest представляет запрос на создание задачи
type TaskRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description *string          `json:"description"`
	Status      model.TaskStatus `json:"status" binding:"omitempty,task_status"`
	DueDate     *model.Date      `json:"due_date"`
	Tags        []string         `json:"tags"`
}

// TaskResponse представляет ответ с данными задачи
type TaskResponse struct {
	Message string      `json:"message,omitempty"`
	Task    *model.Task `json:"task"`
}

// taskQuery reads the listing parameters shared by the user and admin endpoints.
func taskQuery(c *gin.Context) (service.TaskQuery, error) {
	verr := service.NewValidationError()
	page, perPage := pageQuery(c, verr)
	q := service.TaskQuery{
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		DueFrom:   c.Query("due_date_from"),
		DueTo:     c.Query("due_date_to"),
		Tags:      queryList(c, "tags"),
		UserID:    c.Query("user_id"),
		DueWindow: c.Query("due_date_filter"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      page,
		PerPage:   perPage,
	}
	return q, verr.OrNil()
}

// queryList accepts ?k=a&k=b, ?k[]=a and ?k=a,b.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range append(c.QueryArray(key), c.QueryArray(key+"[]")...) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// pageQuery reads page and per_page. Absent values stay 0 and the repository
// applies its defaults; anything that is not a positive integer is a field error.
func pageQuery(c *gin.Context, verr *service.ValidationError) (page, perPage int) {
	return queryInt(c, verr, "page"), queryInt(c, verr, "per_page")
}

func queryInt(c *gin.Context, verr *service.ValidationError, key string) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		verr.Add(key, fmt.Sprintf("The %s field must be an integer of at least 1.", humanize(key)))
		return 0
	}
	return n
}

func (h *TaskHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid task ID format")
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) (*model.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "Not authenticated")
	}
	return user, ok
}

// List возвращает задачи текущего пользователя (или все для администратора)
// @Summary      List tasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        search        query string false "Search in title and description"
// @Param        status        query string false "pending, in_progress or completed"
// @Param        due_date_from query string false "YYYY-MM-DD, used with due_date_to"
// @Param        due_date_to   query string false "YYYY-MM-DD, used with due_date_from"
// @Param        tags          query []string false "Any of these tags"
// @Param        sort_by       query string false "created_at, due_date, title or status"
// @Param        sort_order    query string false "asc or desc"
// @Param        page          query int false "Page number"
// @Param        per_page      query int false "Page size, at most 50"
// @Success      200 {object} repository.Page[model.Task]
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	q, err := taskQuery(c)
	if err != nil {
		respondError(c, h.log, err, "")
		return
	}
	page, err := h.tasks.List(c.Request.Context(), user, q)
	if err != nil {
		respondError(c, h.log, err, "")
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create создает новую задачу
// @Summary      Create a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body TaskRequest true "Task data"
// @Success      201 {object} TaskResponse
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}

	var req TaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), user, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		respondError(c, h.log, err, "")
		return
	}
	c.JSON(http.StatusCreated, TaskResponse{Message: "Task created successfully", Task: task})
}

// GetByID возвращает задачу по ID
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.log, err, "Unauthorized to view this task")
		return
	}
	c.JSON(http.StatusOK, TaskResponse{Task: task})
}

// Update частично обновляет задачу; null очищает description и due_date,
// а переданный tags полностью заменяет набор тегов
// @Summary      Update a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string true "Task ID"
// @Param        request body TaskRequest true "Fields to change"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	// Права проверяются до разбора тела запроса
	task, err := h.tasks.Get(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.log, err, "Unauthorized to update this task")
		return
	}

	var in service.UpdateTaskInput
	if !bindJSON(c, &in) {
		return
	}

	task, err = h.tasks.ApplyUpdate(c.Request.Context(), user, task, in)
	if err != nil {
		respondError(c, h.log, err, "Unauthorized to update this task")
		return
	}
	c.JSON(http.StatusOK, TaskResponse{Message: "Task updated successfully", Task: task})
}

// Delete удаляет задачу вместе с тегами
// @Summary      Delete a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err, "Unauthorized to delete this task")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted successfully"})
}
