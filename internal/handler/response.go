package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"taskmanager/internal/model"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// MessageResponse is returned by endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator
// and makes field errors use JSON names. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
			return model.TaskStatus(fl.Field().String()).Valid()
		})
	})
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func abortWithValidation(c *gin.Context, fields map[string][]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Validation failed", Errors: fields})
}

// bindJSON decodes the body and reports problems itself. It returns false
// when the request has already been answered.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		abortWithValidation(c, validationFields(verrs))
	case errors.Is(err, model.ErrInvalidDate):
		abortWithValidation(c, map[string][]string{"due_date": {"The due date field must be a valid date."}})
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		abortWithValidation(c, map[string][]string{field: {fmt.Sprintf("The %s field has an invalid type.", humanize(field))}})
	default:
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	return false
}

func validationFields(verrs validator.ValidationErrors) map[string][]string {
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		fields[name] = append(fields[name], fieldMessage(fe))
	}
	return fields
}

// fieldName turns "signupRequest.tags[2]" into "tags.2".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	ns = strings.ReplaceAll(ns, "[", ".")
	return strings.ReplaceAll(ns, "]", "")
}

func fieldMessage(fe validator.FieldError) string {
	name := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", name, fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s field confirmation does not match.", humanize(fe.Param()))
	case "task_status":
		return "The selected status is invalid."
	}
	return fmt.Sprintf("The %s field is invalid.", name)
}

func humanize(field string) string {
	return strings.ReplaceAll(strings.ToLower(field), "_", " ")
}

// respondError maps service errors onto HTTP answers. forbidden is the
// message used for ErrForbidden, which differs per action.
func respondError(c *gin.Context, log *zap.Logger, err error, forbidden string) {
	var verr *service.ValidationError
	var unverified *service.VerificationRequiredError
	switch {
	case errors.As(err, &verr):
		abortWithValidation(c, verr.Fields)
	case errors.As(err, &unverified):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":                 "Please verify your email address before logging in.",
			"requires_verification": true,
			"user_id":               unverified.UserID,
		})
	case errors.Is(err, service.ErrUnauthenticated):
		abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, service.ErrInvalidCredentials):
		abortWithError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrForbidden):
		if forbidden == "" {
			forbidden = "Forbidden"
		}
		abortWithError(c, http.StatusForbidden, forbidden)
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "Task not found")
	case errors.Is(err, service.ErrInvalidToken):
		abortWithError(c, http.StatusBadRequest, "Invalid or expired verification link")
	case errors.Is(err, service.ErrAlreadyVerified):
		abortWithError(c, http.StatusBadRequest, "Email is already verified")
	case errors.Is(err, service.ErrAdminNoVerificationNeeded):
		abortWithError(c, http.StatusBadRequest, "Admin accounts do not require verification")
	default:
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
