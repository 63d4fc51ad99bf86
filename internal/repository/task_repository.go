package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskmanager/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

type TaskRepositoryInterface interface {
	List(ctx context.Context, f TaskFilter) (*Page[model.Task], error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Create(ctx context.Context, task *model.Task, tags []string) error
	Update(ctx context.Context, task *model.Task, tags *[]string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ReplaceTags(ctx context.Context, taskID uuid.UUID, names []string) error
	Stats(ctx context.Context, today model.Date) (*TaskStats, error)
	Latest(ctx context.Context, limit int) ([]model.Task, error)
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func orderedTags(db *gorm.DB) *gorm.DB {
	return db.Order("tags.position ASC")
}

// List returns one page of tasks matching f, tags preloaded in stored order.
func (r *TaskRepository) List(ctx context.Context, f TaskFilter) (*Page[model.Task], error) {
	q := applyTaskFilter(r.db.WithContext(ctx).Model(&model.Task{}), f).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	p := newPagination(f.Page, f.PerPage, total)
	var tasks []model.Task
	find := q.Preload("Tags", orderedTags)
	if f.WithOwner {
		find = find.Preload("User")
	}
	err := find.
		Order(orderClause(f.SortBy, f.SortOrder, taskSortColumns, "tasks.created_at")).
		Order("tasks.id ASC").
		Limit(p.PerPage).
		Offset(p.Offset()).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return newPage(tasks, p), nil
}

func applyTaskFilter(q *gorm.DB, f TaskFilter) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("tasks.user_id = ?", *f.UserID)
	}

	if f.Search != "" {
		pattern := likePattern(f.Search)
		if f.SearchTags {
			q = q.Where(
				"(LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ? OR EXISTS (SELECT 1 FROM tags WHERE tags.task_id = tasks.id AND LOWER(tags.name) LIKE ?))",
				pattern, pattern, pattern,
			)
		} else {
			q = q.Where("(LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?)", pattern, pattern)
		}
	}

	if f.Status != "" {
		q = q.Where("tasks.status = ?", f.Status)
	}

	// The range only applies when both bounds are present.
	if f.DueFrom != nil && f.DueTo != nil {
		q = q.Where("tasks.due_date >= ? AND tasks.due_date <= ?", *f.DueFrom, *f.DueTo)
	}

	if len(f.Tags) > 0 {
		q = q.Where("EXISTS (SELECT 1 FROM tags WHERE tags.task_id = tasks.id AND tags.name IN ?)", f.Tags)
	}

	switch f.DueWindow {
	case DueOverdue:
		q = q.Where("tasks.due_date < ? AND tasks.status <> ?", f.Today, model.StatusCompleted)
	case DueToday:
		q = q.Where("tasks.due_date = ?", f.Today)
	case DueThisWeek:
		q = q.Where("tasks.due_date >= ? AND tasks.due_date <= ?", f.Today, f.Today.EndOfWeek())
	case DueNoDueDate:
		q = q.Where("tasks.due_date IS NULL")
	}
	return q
}

// GetByID retrieves a task with its owner and tags
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	return findTask(r.db.WithContext(ctx), id)
}

func findTask(db *gorm.DB, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := db.Preload("Tags", orderedTags).Preload("User").First(&task, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// Create inserts the task and its tags in one transaction.
// On success task is reloaded with its tags.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task, tags []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, task.ID, tags); err != nil {
			return err
		}
		return reload(tx, task)
	})
}

// Update saves the task row and, when tags is non-nil, replaces its tag set,
// all in one transaction. A nil tags pointer leaves the tags untouched.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task, tags *[]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(task).
			Select("title", "description", "status", "due_date", "updated_at").
			Updates(task)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		if tags != nil {
			if err := replaceTags(tx, task.ID, *tags); err != nil {
				return err
			}
		}
		return reload(tx, task)
	})
}

// Delete removes a task and its tags
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Tag{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Task{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
}

// ReplaceTags swaps the whole tag set of a task for names.
func (r *TaskRepository) ReplaceTags(ctx context.Context, taskID uuid.UUID, names []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrTaskNotFound
		}
		return replaceTags(tx, taskID, names)
	})
}

// replaceTags deletes every tag of the task and recreates names in order.
// It must run inside the caller's transaction.
func replaceTags(tx *gorm.DB, taskID uuid.UUID, names []string) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&model.Tag{}).Error; err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	tags := make([]model.Tag, len(names))
	for i, name := range names {
		tags[i] = model.Tag{TaskID: taskID, Name: name, Position: i}
	}
	return tx.Create(&tags).Error
}

func reload(tx *gorm.DB, task *model.Task) error {
	fresh, err := findTask(tx, task.ID)
	if err != nil {
		return err
	}
	*task = *fresh
	return nil
}

type TaskStats struct {
	Total      int64 `json:"total_tasks"`
	Completed  int64 `json:"completed_tasks"`
	Pending    int64 `json:"pending_tasks"`
	InProgress int64 `json:"in_progress_tasks"`
	Overdue    int64 `json:"overdue_tasks"`
}

// Stats counts tasks by status plus the unfinished ones due before today.
func (r *TaskRepository) Stats(ctx context.Context, today model.Date) (*TaskStats, error) {
	db := r.db.WithContext(ctx)

	var rows []struct {
		Status model.TaskStatus
		Count  int64
	}
	err := db.Model(&model.Task{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &TaskStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case model.StatusCompleted:
			stats.Completed = row.Count
		case model.StatusPending:
			stats.Pending = row.Count
		case model.StatusInProgress:
			stats.InProgress = row.Count
		}
	}

	err = db.Model(&model.Task{}).
		Where("due_date < ? AND status <> ?", today, model.StatusCompleted).
		Count(&stats.Overdue).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Latest returns the newest tasks with owner and tags.
func (r *TaskRepository) Latest(ctx context.Context, limit int) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Tags", orderedTags).
		Preload("User").
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}
