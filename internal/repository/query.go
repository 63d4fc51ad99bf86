package repository

import (
	"strings"

	"taskmanager/internal/model"

	"github.com/google/uuid"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 50
)

type Pagination struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

// Page is the envelope shared by every list endpoint.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NormalizePage applies the default page size and the hard ceiling.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func (p Pagination) Offset() int {
	return (p.CurrentPage - 1) * p.PerPage
}

func newPagination(page, perPage int, total int64) Pagination {
	page, perPage = NormalizePage(page, perPage)
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last < 1 {
		last = 1
	}
	return Pagination{CurrentPage: page, LastPage: last, PerPage: perPage, Total: total}
}

func newPage[T any](items []T, p Pagination) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Pagination: p}
}

// orderClause maps a requested sort onto a whitelisted column.
// Unknown fields fall back to created_at desc; anything but "asc" sorts descending.
func orderClause(sortBy, sortOrder string, columns map[string]string, fallback string) string {
	col, ok := columns[sortBy]
	if !ok {
		return fallback + " DESC"
	}
	if strings.EqualFold(sortOrder, "asc") {
		return col + " ASC"
	}
	return col + " DESC"
}

// DueWindow narrows an admin task listing to a relative due-date bucket.
type DueWindow string

const (
	DueOverdue   DueWindow = "overdue"
	DueToday     DueWindow = "today"
	DueThisWeek  DueWindow = "this_week"
	DueNoDueDate DueWindow = "no_due_date"
)

func (w DueWindow) Valid() bool {
	switch w {
	case DueOverdue, DueToday, DueThisWeek, DueNoDueDate:
		return true
	}
	return false
}

// TaskFilter holds every optional condition of a task listing.
// Zero values mean "not filtered".
type TaskFilter struct {
	UserID     *uuid.UUID
	Search     string
	SearchTags bool
	Status     model.TaskStatus
	DueFrom    *model.Date
	DueTo      *model.Date
	Tags       []string
	DueWindow  DueWindow
	Today      model.Date // reference day for DueWindow
	WithOwner  bool

	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

type UserFilter struct {
	Search   string
	Role     model.Role
	Verified *bool

	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

var taskSortColumns = map[string]string{
	"created_at": "tasks.created_at",
	"due_date":   "tasks.due_date",
	"title":      "tasks.title",
	"status":     "tasks.status",
}

var userSortColumns = map[string]string{
	"created_at":  "users.created_at",
	"name":        "users.name",
	"email":       "users.email",
	"tasks_count": "tasks_count",
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
