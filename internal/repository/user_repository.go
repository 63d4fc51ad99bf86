package repository

import (
	"context"
	"errors"
	"strings"

	"taskmanager/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *model.User) error
	List(ctx context.Context, f UserFilter) (*Page[model.User], error)
	Count(ctx context.Context) (int64, error)
	Latest(ctx context.Context, limit int) ([]model.User, error)
}

var _ UserRepositoryInterface = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// NormalizeEmail is the stored form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = NormalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	result := r.db.WithContext(ctx).Save(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns one page of users with their task counts.
func (r *UserRepository) List(ctx context.Context, f UserFilter) (*Page[model.User], error) {
	q := r.db.WithContext(ctx).Model(&model.User{})

	if f.Search != "" {
		pattern := likePattern(f.Search)
		q = q.Where("(LOWER(users.name) LIKE ? OR LOWER(users.email) LIKE ?)", pattern, pattern)
	}
	if f.Role != "" {
		q = q.Where("users.role = ?", f.Role)
	}
	if f.Verified != nil {
		if *f.Verified {
			q = q.Where("users.email_verified_at IS NOT NULL")
		} else {
			q = q.Where("users.email_verified_at IS NULL")
		}
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	p := newPagination(f.Page, f.PerPage, total)
	var users []model.User
	err := q.
		Select("users.*, (SELECT COUNT(*) FROM tasks WHERE tasks.user_id = users.id) AS tasks_count").
		Order(orderClause(f.SortBy, f.SortOrder, userSortColumns, "users.created_at")).
		Order("users.id ASC").
		Limit(p.PerPage).
		Offset(p.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return newPage(users, p), nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}

// Latest returns the most recently created users, newest first.
func (r *UserRepository) Latest(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
