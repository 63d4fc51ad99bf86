package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/notify"
	"taskmanager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const verificationTokenBytes = 32

// VerifyResult is returned by a successful verification.
type VerifyResult struct {
	User            *model.User
	Token           *IssuedToken
	AlreadyVerified bool
}

// VerificationService drives Unverified -> Verified. Verified is terminal.
type VerificationService struct {
	users       repository.UserRepositoryInterface
	sessions    *Sessions
	notifier    notify.Notifier
	frontendURL string
	log         *zap.Logger
	now         func() time.Time
}

func NewVerificationService(
	users repository.UserRepositoryInterface,
	sessions *Sessions,
	notifier notify.Notifier,
	frontendURL string,
	log *zap.Logger,
) *VerificationService {
	return &VerificationService{
		users:       users,
		sessions:    sessions,
		notifier:    notifier,
		frontendURL: frontendURL,
		log:         log,
		now:         time.Now,
	}
}

// GenerateToken stores a fresh pending token on user, replacing any earlier one.
func (s *VerificationService) GenerateToken(ctx context.Context, user *model.User) (string, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	user.EmailVerificationToken = &token
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}
	return token, nil
}

// Send generates a token and dispatches the verification link.
func (s *VerificationService) Send(ctx context.Context, user *model.User) error {
	token, err := s.GenerateToken(ctx, user)
	if err != nil {
		return err
	}
	return s.notifier.SendVerification(ctx, notify.Verification{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Token:  token,
		Link:   notify.VerificationLink(s.frontendURL, user.ID, token),
	})
}

// Verify consumes token for userID and starts a session.
// Presenting the token that already verified the account succeeds again.
func (s *VerificationService) Verify(ctx context.Context, userID uuid.UUID, token string) (*VerifyResult, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	result := &VerifyResult{User: user}
	if user.HasVerifiedEmail() {
		if user.VerifiedTokenHash == nil || !equal(hashToken(token), *user.VerifiedTokenHash) {
			return nil, ErrInvalidToken
		}
		result.AlreadyVerified = true
	} else {
		if user.EmailVerificationToken == nil || !equal(token, *user.EmailVerificationToken) {
			return nil, ErrInvalidToken
		}
		now := s.now()
		hash := hashToken(token)
		user.EmailVerificationToken = nil
		user.VerifiedTokenHash = &hash
		user.EmailVerifiedAt = &now
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("mark verified: %w", err)
		}
	}

	issued, err := s.sessions.Issue(ctx, user, false)
	if err != nil {
		return nil, err
	}
	result.Token = issued
	return result, nil
}

// Resend regenerates the pending token and sends a new link.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return FieldError("email", "The selected email is invalid.")
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	if user.IsAdmin() {
		return ErrAdminNoVerificationNeeded
	}
	if user.HasVerifiedEmail() {
		return ErrAlreadyVerified
	}
	if err := s.Send(ctx, user); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
