package service

import (
	"context"
	"fmt"
	"time"

	"taskmanager/internal/auth"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"

	"github.com/google/uuid"
)

// IssuedToken is a signed bearer token handed to the client.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sessions issues bearer tokens. Every issuance revokes the user's previous
// tokens in the same transaction, so at most one token per user is valid.
type Sessions struct {
	tokens repository.TokenRepositoryInterface
	issuer *auth.Issuer
	now    func() time.Time
}

func NewSessions(tokens repository.TokenRepositoryInterface, issuer *auth.Issuer) *Sessions {
	return &Sessions{tokens: tokens, issuer: issuer, now: time.Now}
}

// Issue signs a new token for user. When markLogin is set the user's
// last_login_at is updated together with the token swap.
func (s *Sessions) Issue(ctx context.Context, user *model.User, markLogin bool) (*IssuedToken, error) {
	tokenID := uuid.New()
	signed, expiresAt, err := s.issuer.Generate(user.ID, tokenID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	row := &model.AccessToken{
		ID:        tokenID,
		UserID:    user.ID,
		Name:      model.DefaultTokenName,
		ExpiresAt: expiresAt,
	}
	var loginAt *time.Time
	if markLogin {
		now := s.now()
		loginAt = &now
	}
	if err := s.tokens.IssueExclusive(ctx, row, loginAt); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if loginAt != nil {
		user.LastLoginAt = loginAt
	}
	return &IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}
