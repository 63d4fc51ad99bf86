package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"taskmanager/internal/model"
	"taskmanager/internal/policy"
	"taskmanager/internal/repository"

	"github.com/google/uuid"
)

const maxTitleLength = 255

// TaskQuery is a task listing request as received from the client.
// Admin-only fields are ignored for regular users.
type TaskQuery struct {
	Search    string
	Status    string
	DueFrom   string
	DueTo     string
	Tags      []string
	UserID    string
	DueWindow string // admin listing only

	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

type CreateTaskInput struct {
	Title       string
	Description *string
	Status      model.TaskStatus
	DueDate     *model.Date
	Tags        []string
}

// UpdateTaskInput changes only the fields that are Set.
// A null Description or DueDate clears it; Tags set to anything replaces the whole set.
type UpdateTaskInput struct {
	Title       Optional[string]           `json:"title"`
	Description Optional[string]           `json:"description"`
	Status      Optional[model.TaskStatus] `json:"status"`
	DueDate     Optional[model.Date]       `json:"due_date"`
	Tags        Optional[[]string]         `json:"tags"`
}

type TaskService struct {
	tasks repository.TaskRepositoryInterface
	loc   *time.Location
	now   func() time.Time
}

func NewTaskService(tasks repository.TaskRepositoryInterface, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskService{tasks: tasks, loc: loc, now: time.Now}
}

// Today is the current calendar day in the configured zone.
func (s *TaskService) Today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

// List returns the tasks visible to actor: their own, or everything for admins.
func (s *TaskService) List(ctx context.Context, actor *model.User, q TaskQuery) (*repository.Page[model.Task], error) {
	f, err := s.filter(actor, q, false)
	if err != nil {
		return nil, err
	}
	return s.tasks.List(ctx, f)
}

// ListAdmin is the admin listing: tag search, owner preload and due windows.
func (s *TaskService) ListAdmin(ctx context.Context, actor *model.User, q TaskQuery) (*repository.Page[model.Task], error) {
	if !policy.RequireAdmin(actor.Role).Allowed() {
		return nil, ErrForbidden
	}
	f, err := s.filter(actor, q, true)
	if err != nil {
		return nil, err
	}
	return s.tasks.List(ctx, f)
}

func (s *TaskService) filter(actor *model.User, q TaskQuery, admin bool) (repository.TaskFilter, error) {
	verr := NewValidationError()
	f := repository.TaskFilter{
		Search:    strings.TrimSpace(q.Search),
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		PerPage:   q.PerPage,
		Today:     s.Today(),
	}

	if actor.IsAdmin() {
		if q.UserID != "" {
			id, err := uuid.Parse(q.UserID)
			if err != nil {
				verr.Add("user_id", "The user id field must be a valid UUID.")
			} else {
				f.UserID = &id
			}
		}
	} else {
		id := actor.ID
		f.UserID = &id
	}

	if q.Status != "" {
		status := model.TaskStatus(q.Status)
		if !status.Valid() {
			verr.Add("status", "The selected status is invalid.")
		}
		f.Status = status
	}

	if q.DueFrom != "" && q.DueTo != "" {
		from, err := model.ParseDate(q.DueFrom)
		if err != nil {
			verr.Add("due_date_from", "The due date from field must be a valid date.")
		}
		to, err := model.ParseDate(q.DueTo)
		if err != nil {
			verr.Add("due_date_to", "The due date to field must be a valid date.")
		}
		f.DueFrom, f.DueTo = &from, &to
	}

	for _, tag := range q.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			f.Tags = append(f.Tags, tag)
		}
	}

	if admin {
		f.SearchTags = true
		f.WithOwner = true
		// Unknown windows are ignored like unknown sort fields.
		if w := repository.DueWindow(q.DueWindow); w.Valid() {
			f.DueWindow = w
		}
	}

	if err := verr.OrNil(); err != nil {
		return repository.TaskFilter{}, err
	}
	return f, nil
}

// Get returns a task if actor may see it.
func (s *TaskService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if err := authorize(actor, task); err != nil {
		return nil, err
	}
	return task, nil
}

func authorize(actor *model.User, task *model.Task) error {
	if d := policy.CanAccess(actor.Role, actor.ID, task.UserID); !d.Allowed() {
		return fmt.Errorf("%w: %s", ErrForbidden, d)
	}
	return nil
}

// Create stores a task owned by actor together with its tags.
func (s *TaskService) Create(ctx context.Context, actor *model.User, in CreateTaskInput) (*model.Task, error) {
	verr := NewValidationError()
	title := strings.TrimSpace(in.Title)
	validateTitle(verr, title)
	if in.Status != "" && !in.Status.Valid() {
		verr.Add("status", "The selected status is invalid.")
	}
	if in.DueDate != nil {
		s.validateDueDate(verr, *in.DueDate)
	}
	tags := normalizeTags(verr, in.Tags)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	task := &model.Task{
		UserID:      actor.ID,
		Title:       title,
		Description: normalizeDescription(in.Description),
		Status:      in.Status,
		DueDate:     in.DueDate,
	}
	if err := s.tasks.Create(ctx, task, tags); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// Update applies a partial update. Authorization runs before validation,
// so a forbidden caller learns nothing about the payload rules.
func (s *TaskService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in UpdateTaskInput) (*model.Task, error) {
	task, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.ApplyUpdate(ctx, actor, task, in)
}

// ApplyUpdate updates a task already loaded through Get. HTTP handlers use it
// to authorize before the request body is decoded.
func (s *TaskService) ApplyUpdate(ctx context.Context, actor *model.User, task *model.Task, in UpdateTaskInput) (*model.Task, error) {
	if err := authorize(actor, task); err != nil {
		return nil, err
	}

	verr := NewValidationError()
	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		validateTitle(verr, title)
		task.Title = title
	}
	if in.Description.Set {
		if in.Description.Null {
			task.Description = nil
		} else {
			task.Description = normalizeDescription(&in.Description.Value)
		}
	}
	if in.Status.Set {
		if in.Status.Null || !in.Status.Value.Valid() {
			verr.Add("status", "The selected status is invalid.")
		}
		task.Status = in.Status.Value
	}
	if in.DueDate.Set {
		if in.DueDate.Null {
			task.DueDate = nil
		} else {
			s.validateDueDate(verr, in.DueDate.Value)
			due := in.DueDate.Value
			task.DueDate = &due
		}
	}
	var tags *[]string
	if in.Tags.Set {
		names := normalizeTags(verr, in.Tags.Value)
		tags = &names
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.tasks.Update(ctx, task, tags); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes a task and its tags if actor may touch it.
func (s *TaskService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ReplaceTags swaps the tag set of a task the actor may touch.
func (s *TaskService) ReplaceTags(ctx context.Context, actor *model.User, id uuid.UUID, names []string) (*model.Task, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	verr := NewValidationError()
	tags := normalizeTags(verr, names)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if err := s.tasks.ReplaceTags(ctx, id, tags); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("replace tags: %w", err)
	}
	return s.Get(ctx, actor, id)
}

func validateTitle(verr *ValidationError, title string) {
	switch {
	case title == "":
		verr.Add("title", "The title field is required.")
	case utf8.RuneCountInString(title) > maxTitleLength:
		verr.Add("title", "The title field must not be greater than 255 characters.")
	}
}

func (s *TaskService) validateDueDate(verr *ValidationError, due model.Date) {
	if due.Before(s.Today()) {
		verr.Add("due_date", "The due date field must be a date after or equal to today.")
	}
}

// normalizeDescription trims and turns blank into nil.
func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*d)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeTags(verr *ValidationError, names []string) []string {
	out := make([]string, 0, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		field := fmt.Sprintf("tags.%d", i)
		switch {
		case name == "":
			verr.Add(field, fmt.Sprintf("The %s field is required.", field))
		case utf8.RuneCountInString(name) > model.MaxTagLength:
			verr.Add(field, fmt.Sprintf("The %s field must not be greater than %d characters.", field, model.MaxTagLength))
		default:
			out = append(out, name)
		}
	}
	return out
}
