package handler

import (
	"errors"
	"net/http"
	"time"

	"taskmanager/internal/metrics"
	"taskmanager/internal/middleware"
	"taskmanager/internal/model"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth    *service.AuthService
	verify  *service.VerificationService
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, verify *service.VerificationService, m *metrics.Metrics, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, verify: verify, metrics: m, log: log}
}

// SignupRequest представляет запрос на регистрацию
type SignupRequest struct {
	Name                 string `json:"name" binding:"required,max=255"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ResendRequest представляет запрос на повторную отправку письма
type ResendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SignupResponse представляет ответ на регистрацию
type SignupResponse struct {
	Message              string      `json:"message"`
	User                 *model.User `json:"user"`
	RequiresVerification bool        `json:"requires_verification"`
	Token                string      `json:"token,omitempty"`
	ExpiresAt            *time.Time  `json:"expires_at,omitempty"`
}

// AuthResponse представляет ответ с токеном
type AuthResponse struct {
	Message   string      `json:"message"`
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Signup регистрирует нового пользователя
// @Summary      Register a user
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Account data"
// @Success      201 {object} SignupResponse
// @Failure      422 {object} ErrorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err, "")
		return
	}

	resp := SignupResponse{
		Message:              "User registered successfully. Please check your email to verify your account.",
		User:                 res.User,
		RequiresVerification: res.RequiresVerification,
	}
	if res.Token != nil {
		resp.Message = "Account created successfully"
		resp.Token = res.Token.Token
		resp.ExpiresAt = &res.Token.ExpiresAt
	}
	c.JSON(http.StatusCreated, resp)
}

// Login выполняет вход и выдает новый токен, отзывая предыдущие
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} AuthResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} map[string]interface{}
// @Failure      422 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, token, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.metrics.Login("invalid")
		case errors.Is(err, service.ErrVerificationRequired):
			h.metrics.Login("unverified")
		default:
			h.metrics.Login("error")
		}
		respondError(c, h.log, err, "")
		return
	}

	h.metrics.Login("success")
	c.JSON(http.StatusOK, AuthResponse{
		Message:   "Login successful",
		User:      user,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

// VerifyEmail подтверждает адрес по ссылке из письма
// @Summary      Verify an email address
// @Tags         Auth
// @Produce      json
// @Param        id    query string true "User ID"
// @Param        token query string true "Verification token"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	rawID, token := c.Query("id"), c.Query("token")

	fields := map[string][]string{}
	if rawID == "" {
		fields["id"] = append(fields["id"], "The id field is required.")
	}
	if token == "" {
		fields["token"] = append(fields["token"], "The token field is required.")
	}
	userID, err := uuid.Parse(rawID)
	if rawID != "" && err != nil {
		fields["id"] = append(fields["id"], "The selected id is invalid.")
	}
	if len(fields) > 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Invalid verification link", Errors: fields})
		return
	}

	res, err := h.verify.Verify(c.Request.Context(), userID, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			h.metrics.Verification("invalid")
		}
		respondError(c, h.log, err, "")
		return
	}

	msg := "Email verified successfully! You can now login."
	if res.AlreadyVerified {
		h.metrics.Verification("already_verified")
		msg = "Email already verified"
	} else {
		h.metrics.Verification("verified")
	}
	c.JSON(http.StatusOK, AuthResponse{
		Message:   msg,
		User:      res.User,
		Token:     res.Token.Token,
		ExpiresAt: res.Token.ExpiresAt,
	})
}

// ResendVerification отправляет новую ссылку подтверждения
// @Summary      Resend the verification email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body ResendRequest true "Account email"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req ResendRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.verify.Resend(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, err, "")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Verification email sent successfully"})
}

// Profile возвращает текущего пользователя
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]model.User
// @Failure      401 {object} ErrorResponse
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout отзывает токен текущего запроса
// @Summary      Log out
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MessageResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenID, ok := middleware.CurrentTokenID(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := h.auth.Logout(c.Request.Context(), tokenID); err != nil {
		respondError(c, h.log, err, "")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}
