package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"taskmanager/internal/auth"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	MinPasswordLength = 8
	maxNameLength     = 255
	maxEmailLength    = 255
	maxPasswordBytes  = 72 // bcrypt input limit
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role // empty means user
}

type RegisterResult struct {
	User                 *model.User
	Token                *IssuedToken // only for accounts that need no verification
	RequiresVerification bool
}

type AuthService struct {
	users        repository.UserRepositoryInterface
	tokens       repository.TokenRepositoryInterface
	issuer       *auth.Issuer
	sessions     *Sessions
	verification *VerificationService
	validate     *validator.Validate
	log          *zap.Logger
	now          func() time.Time
	bcryptCost   int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(
	users repository.UserRepositoryInterface,
	tokens repository.TokenRepositoryInterface,
	issuer *auth.Issuer,
	sessions *Sessions,
	verification *VerificationService,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		issuer:       issuer,
		sessions:     sessions,
		verification: verification,
		validate:     validator.New(),
		log:          log,
		now:          time.Now,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// WithBcryptCost lowers hashing cost; tests use bcrypt.MinCost.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// Register creates an account. Regular users get a verification link and no
// token; admin accounts are verified on creation and receive a token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = repository.NormalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = model.RoleUser
	}

	verr := NewValidationError()
	switch {
	case in.Name == "":
		verr.Add("name", "The name field is required.")
	case utf8.RuneCountInString(in.Name) > maxNameLength:
		verr.Add("name", "The name field must not be greater than 255 characters.")
	}
	switch {
	case in.Email == "":
		verr.Add("email", "The email field is required.")
	case len(in.Email) > maxEmailLength:
		verr.Add("email", "The email field must not be greater than 255 characters.")
	case s.validate.Var(in.Email, "email") != nil:
		verr.Add("email", "The email field must be a valid email address.")
	}
	switch {
	case utf8.RuneCountInString(in.Password) < MinPasswordLength:
		verr.Add("password", fmt.Sprintf("The password field must be at least %d characters.", MinPasswordLength))
	case len(in.Password) > maxPasswordBytes:
		verr.Add("password", fmt.Sprintf("The password field must not be greater than %d bytes.", maxPasswordBytes))
	}
	if !in.Role.Valid() {
		verr.Add("role", "The selected role is invalid.")
	}
	if _, ok := verr.Fields["email"]; !ok {
		taken, err := s.users.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			verr.Add("email", "The email has already been taken.")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if user.IsAdmin() {
		now := s.now()
		user.EmailVerifiedAt = &now
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, FieldError("email", "The email has already been taken.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	result := &RegisterResult{User: user, RequiresVerification: !user.HasVerifiedEmail()}
	if result.RequiresVerification {
		if err := s.verification.Send(ctx, user); err != nil {
			// The account exists; the user can ask for another link.
			s.log.Error("failed to send verification", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		return result, nil
	}

	token, err := s.sessions.Issue(ctx, user, false)
	if err != nil {
		return nil, err
	}
	result.Token = token
	return result, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
	})
	return s.dummyHash
}

// Authenticate checks credentials and starts a new session, revoking every
// earlier token of the user.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, *IssuedToken, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		// Keep timing close to the wrong-password path.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.HasVerifiedEmail() {
		return nil, nil, &VerificationRequiredError{UserID: user.ID}
	}

	token, err := s.sessions.Issue(ctx, user, true)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// Logout revokes one token. Revoking an already revoked token succeeds.
func (s *AuthService) Logout(ctx context.Context, tokenID uuid.UUID) error {
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// CurrentUser resolves a raw bearer token to its user and token id.
func (s *AuthService) CurrentUser(ctx context.Context, rawToken string) (*model.User, uuid.UUID, error) {
	userID, tokenID, err := s.issuer.Parse(rawToken)
	if err != nil {
		return nil, uuid.Nil, ErrUnauthenticated
	}

	token, err := s.tokens.Find(ctx, tokenID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, uuid.Nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("find token: %w", err)
	}
	if token.UserID != userID {
		return nil, uuid.Nil, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, uuid.Nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.tokens.Touch(ctx, tokenID, s.now()); err != nil {
		s.log.Warn("failed to touch token", zap.String("token_id", tokenID.String()), zap.Error(err))
	}
	return user, tokenID, nil
}
