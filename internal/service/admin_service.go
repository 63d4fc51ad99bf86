package service

import (
	"context"
	"fmt"
	"strings"

	"taskmanager/internal/model"
	"taskmanager/internal/policy"
	"taskmanager/internal/repository"
)

const recentLimit = 5

type Statistics struct {
	TotalUsers      int64 `json:"total_users"`
	TotalTasks      int64 `json:"total_tasks"`
	CompletedTasks  int64 `json:"completed_tasks"`
	PendingTasks    int64 `json:"pending_tasks"`
	InProgressTasks int64 `json:"in_progress_tasks"`
	OverdueTasks    int64 `json:"overdue_tasks"`
}

type Dashboard struct {
	Statistics  Statistics   `json:"statistics"`
	RecentUsers []model.User `json:"recent_users"`
	RecentTasks []model.Task `json:"recent_tasks"`
}

// UserQuery is an admin user listing request.
type UserQuery struct {
	Search    string
	Role      string
	Verified  string // "1"/"true" or "0"/"false"; empty means any
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// AdminService builds read-only views over all users and tasks.
// Nothing is cached; every call queries the store.
type AdminService struct {
	users       repository.UserRepositoryInterface
	tasks       repository.TaskRepositoryInterface
	taskService *TaskService
}

func NewAdminService(users repository.UserRepositoryInterface, tasks repository.TaskRepositoryInterface, taskService *TaskService) *AdminService {
	return &AdminService{users: users, tasks: tasks, taskService: taskService}
}

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	stats, err := s.tasks.Stats(ctx, s.taskService.Today())
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	users, err := s.users.Latest(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	tasks, err := s.tasks.Latest(ctx, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent tasks: %w", err)
	}

	if users == nil {
		users = []model.User{}
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return &Dashboard{
		Statistics: Statistics{
			TotalUsers:      totalUsers,
			TotalTasks:      stats.Total,
			CompletedTasks:  stats.Completed,
			PendingTasks:    stats.Pending,
			InProgressTasks: stats.InProgress,
			OverdueTasks:    stats.Overdue,
		},
		RecentUsers: users,
		RecentTasks: tasks,
	}, nil
}

func (s *AdminService) ListUsers(ctx context.Context, q UserQuery) (*repository.Page[model.User], error) {
	verr := NewValidationError()
	f := repository.UserFilter{
		Search:    strings.TrimSpace(q.Search),
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		PerPage:   q.PerPage,
	}
	if q.Role != "" {
		role := model.Role(q.Role)
		if !role.Valid() {
			verr.Add("role", "The selected role is invalid.")
		}
		f.Role = role
	}
	switch strings.ToLower(q.Verified) {
	case "":
	case "1", "true":
		v := true
		f.Verified = &v
	case "0", "false":
		v := false
		f.Verified = &v
	default:
		verr.Add("verified", "The verified field must be 1 or 0.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s.users.List(ctx, f)
}

func (s *AdminService) ListTasks(ctx context.Context, actor *model.User, q TaskQuery) (*repository.Page[model.Task], error) {
	if !policy.RequireAdmin(actor.Role).Allowed() {
		return nil, ErrForbidden
	}
	return s.taskService.ListAdmin(ctx, actor, q)
}
