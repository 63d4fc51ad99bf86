package repository

import (
	"context"
	"errors"
	"time"

	"taskmanager/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository struct {
	db *gorm.DB
}

type TokenRepositoryInterface interface {
	IssueExclusive(ctx context.Context, token *model.AccessToken, loginAt *time.Time) error
	Find(ctx context.Context, id uuid.UUID) (*model.AccessToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var _ TokenRepositoryInterface = (*TokenRepository)(nil)

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// IssueExclusive makes token the only token of its user.
// The user row is locked so concurrent issuers for the same user serialize;
// all previous tokens are removed in the same transaction that inserts the new one.
// A non-nil loginAt is stored as the user's last login time.
func (r *TokenRepository) IssueExclusive(ctx context.Context, token *model.AccessToken, loginAt *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", token.UserID).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", token.UserID).Delete(&model.AccessToken{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(token).Error; err != nil {
			return err
		}

		if loginAt != nil {
			return tx.Model(&model.User{}).
				Where("id = ?", token.UserID).
				Update("last_login_at", *loginAt).Error
		}
		return nil
	})
}

func (r *TokenRepository) Find(ctx context.Context, id uuid.UUID) (*model.AccessToken, error) {
	var token model.AccessToken
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Delete revokes a single token. Deleting a missing token is not an error.
func (r *TokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.AccessToken{}).Error
}

func (r *TokenRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// DeleteExpired prunes rows whose JWT can no longer verify anyway.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.AccessToken{})
	return result.RowsAffected, result.Error
}
