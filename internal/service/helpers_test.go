package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskmanager/internal/auth"
	"taskmanager/internal/database/testdb"
	"taskmanager/internal/model"
	"taskmanager/internal/notify"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Verification
	err  error
}

func (f *fakeNotifier) SendVerification(ctx context.Context, v notify.Verification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v)
	return f.err
}

func (f *fakeNotifier) last(t *testing.T) notify.Verification {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no verification was sent")
	return f.sent[len(f.sent)-1]
}

type env struct {
	db       *gorm.DB
	users    *repository.UserRepository
	tokens   *repository.TokenRepository
	taskRepo *repository.TaskRepository
	notifier *fakeNotifier

	auth   *service.AuthService
	verify *service.VerificationService
	tasks  *service.TaskService
	admin  *service.AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testdb.Open(t)

	e := &env{
		db:       db,
		users:    repository.NewUserRepository(db),
		tokens:   repository.NewTokenRepository(db),
		taskRepo: repository.NewTaskRepository(db),
		notifier: &fakeNotifier{},
	}
	issuer := auth.NewIssuer("test-secret", time.Hour)
	sessions := service.NewSessions(e.tokens, issuer)
	e.verify = service.NewVerificationService(e.users, sessions, e.notifier, "http://app.test", zap.NewNop())
	e.auth = service.NewAuthService(e.users, e.tokens, issuer, sessions, e.verify, zap.NewNop()).
		WithBcryptCost(bcrypt.MinCost)
	e.tasks = service.NewTaskService(e.taskRepo, time.UTC)
	e.admin = service.NewAdminService(e.users, e.taskRepo, e.tasks)
	return e
}

const testPassword = "password123"

// registerVerified signs a user up and completes verification.
func (e *env) registerVerified(t *testing.T, name, email string) *model.User {
	t.Helper()
	ctx := context.Background()
	res, err := e.auth.Register(ctx, service.RegisterInput{Name: name, Email: email, Password: testPassword})
	require.NoError(t, err)

	sent := e.notifier.last(t)
	verified, err := e.verify.Verify(ctx, res.User.ID, sent.Token)
	require.NoError(t, err)
	return verified.User
}

func (e *env) registerAdmin(t *testing.T, name, email string) *model.User {
	t.Helper()
	res, err := e.auth.Register(context.Background(), service.RegisterInput{
		Name: name, Email: email, Password: testPassword, Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	return res.User
}

func (e *env) createTask(t *testing.T, owner *model.User, in service.CreateTaskInput) *model.Task {
	t.Helper()
	task, err := e.tasks.Create(context.Background(), owner, in)
	require.NoError(t, err)
	return task
}

// insertTask writes a task directly, bypassing due-date validation.
func (e *env) insertTask(t *testing.T, owner *model.User, title string, status model.TaskStatus, due *model.Date) *model.Task {
	t.Helper()
	task := &model.Task{UserID: owner.ID, Title: title, Status: status, DueDate: due}
	require.NoError(t, e.db.Create(task).Error)
	return task
}

func ptr[T any](v T) *T {
	return &v
}

func today() model.Date {
	return model.DateOf(time.Now().UTC())
}

func titles(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}
