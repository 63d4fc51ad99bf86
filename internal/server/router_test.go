package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskmanager/internal/config"
	"taskmanager/internal/database/testdb"
	"taskmanager/internal/metrics"
	"taskmanager/internal/model"
	"taskmanager/internal/notify"
	"taskmanager/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const password = "password123"

// Перехватчик писем с подтверждением
type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Verification
}

func (n *captureNotifier) SendVerification(ctx context.Context, v notify.Verification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, v)
	return nil
}

func (n *captureNotifier) last(t *testing.T) notify.Verification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no verification was sent")
	return n.sent[len(n.sent)-1]
}

type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	notifier *captureNotifier
	ips      atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:       config.AppConfig{Env: "test", Timezone: "UTC", FrontendURL: "http://app.test"},
		JWT:       config.JWTConfig{Secret: "test-secret", TTL: time.Hour},
		RateLimit: config.RateLimitConfig{LoginAttempts: 5, LoginWindow: time.Minute},
	}
	ts := &testServer{db: testdb.Open(t), notifier: &captureNotifier{}}
	ts.router = server.NewRouter(server.Deps{
		Config:     cfg,
		DB:         ts.db,
		Log:        zap.NewNop(),
		Metrics:    metrics.New(),
		Notifier:   ts.notifier,
		BcryptCost: bcrypt.MinCost,
		Version:    "test",
	})
	return ts
}

type request struct {
	method string
	path   string
	token  string
	body   any
	raw    string
	ip     string
}

func (ts *testServer) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	switch {
	case r.raw != "":
		body.WriteString(r.raw)
	case r.body != nil:
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}

	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.ip != "" {
		req.RemoteAddr = r.ip + ":1234"
	}

	resp := httptest.NewRecorder()
	ts.router.ServeHTTP(resp, req)
	return resp
}

// login идет каждый раз с нового адреса, чтобы не упираться в лимит попыток
func (ts *testServer) login(t *testing.T, email, pass string) *httptest.ResponseRecorder {
	t.Helper()
	ip := fmt.Sprintf("10.0.0.%d", ts.ips.Add(1))
	return ts.do(t, request{method: "POST", path: "/auth/login", ip: ip, body: gin.H{"email": email, "password": pass}})
}

// signupVerified регистрирует пользователя, подтверждает почту и возвращает токен
func (ts *testServer) signupVerified(t *testing.T, name, email string) string {
	t.Helper()
	resp := ts.do(t, request{method: "POST", path: "/auth/signup", body: gin.H{
		"name": name, "email": email, "password": password, "password_confirmation": password,
	}})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	sent := ts.notifier.last(t)
	resp = ts.do(t, request{method: "GET", path: fmt.Sprintf("/auth/verify-email?id=%s&token=%s", sent.UserID, sent.Token)})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode(t, resp)["token"].(string)
}

// seedAdmin создает администратора напрямую в базе и выполняет вход
func (ts *testServer) seedAdmin(t *testing.T, email string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, ts.db.Create(&model.User{
		Name: "Root", Email: email, PasswordHash: string(hash), Role: model.RoleAdmin, EmailVerifiedAt: &now,
	}).Error)

	resp := ts.login(t, email, password)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode(t, resp)["token"].(string)
}

func (ts *testServer) createTask(t *testing.T, token string, body gin.H) string {
	t.Helper()
	resp := ts.do(t, request{method: "POST", path: "/tasks", token: token, body: body})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode(t, resp)["task"].(map[string]any)["id"].(string)
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func errorFields(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, resp)
	assert.Equal(t, "Validation failed", body["error"])
	fields, ok := body["errors"].(map[string]any)
	require.True(t, ok, resp.Body.String())
	return fields
}

func TestSignupVerifyLogin(t *testing.T) {
	// Arrange
	ts := newTestServer(t)

	// Act: регистрация
	resp := ts.do(t, request{method: "POST", path: "/auth/signup", body: gin.H{
		"name": "Jane", "email": "Jane@Example.com", "password": password, "password_confirmation": password,
	}})

	// Assert: токен не выдается до подтверждения почты
	require.Equal(t, http.StatusCreated, resp.Code)
	body := decode(t, resp)
	assert.Equal(t, true, body["requires_verification"])
	assert.NotContains(t, body, "token")
	assert.Equal(t, "jane@example.com", body["user"].(map[string]any)["email"])
	assert.NotContains(t, resp.Body.String(), "password")

	// Вход без подтверждения запрещен
	resp = ts.login(t, "jane@example.com", password)
	require.Equal(t, http.StatusForbidden, resp.Code)
	body = decode(t, resp)
	assert.Equal(t, true, body["requires_verification"])
	sent := ts.notifier.last(t)
	assert.Equal(t, sent.UserID.String(), body["user_id"])
	assert.Contains(t, sent.Link, "http://app.test/verify-email?")

	// Подтверждение выдает токен; повторное подтверждение той же ссылкой идемпотентно
	verifyPath := fmt.Sprintf("/auth/verify-email?id=%s&token=%s", sent.UserID, sent.Token)
	resp = ts.do(t, request{method: "GET", path: verifyPath})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, decode(t, resp)["token"])

	resp = ts.do(t, request{method: "GET", path: verifyPath})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Email already verified", decode(t, resp)["message"])

	// Вход и профиль
	resp = ts.login(t, "JANE@example.com", password)
	require.Equal(t, http.StatusOK, resp.Code)
	token := decode(t, resp)["token"].(string)

	resp = ts.do(t, request{method: "GET", path: "/auth/profile", token: token})
	require.Equal(t, http.StatusOK, resp.Code)
	profile := decode(t, resp)["user"].(map[string]any)
	assert.Equal(t, "jane@example.com", profile["email"])
	assert.NotNil(t, profile["email_verified_at"])
	assert.NotNil(t, profile["last_login_at"])
}

func TestVerifyEmail_BadLinks(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	resp := ts.do(t, request{method: "POST", path: "/auth/signup", body: gin.H{
		"name": "Jane", "email": "jane@example.com", "password": password, "password_confirmation": password,
	}})
	require.Equal(t, http.StatusCreated, resp.Code)
	sent := ts.notifier.last(t)

	// Act + Assert: отсутствующие параметры
	resp = ts.do(t, request{method: "GET", path: "/auth/verify-email"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	body := decode(t, resp)
	assert.Equal(t, "Invalid verification link", body["error"])
	assert.Contains(t, body["errors"], "id")
	assert.Contains(t, body["errors"], "token")

	// Неверный токен
	resp = ts.do(t, request{method: "GET", path: fmt.Sprintf("/auth/verify-email?id=%s&token=wrong", sent.UserID)})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Invalid or expired verification link", decode(t, resp)["error"])
}

func TestResendVerification(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	resp := ts.do(t, request{method: "POST", path: "/auth/signup", body: gin.H{
		"name": "Jane", "email": "jane@example.com", "password": password, "password_confirmation": password,
	}})
	require.Equal(t, http.StatusCreated, resp.Code)
	first := ts.notifier.last(t)

	// Act
	resp = ts.do(t, request{method: "POST", path: "/auth/resend-verification", body: gin.H{"email": "jane@example.com"}})

	// Assert: новая ссылка заменяет старую
	require.Equal(t, http.StatusOK, resp.Code)
	second := ts.notifier.last(t)
	assert.NotEqual(t, first.Token, second.Token)

	resp = ts.do(t, request{method: "GET", path: fmt.Sprintf("/auth/verify-email?id=%s&token=%s", first.UserID, first.Token)})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	ts.seedAdmin(t, "root@example.com")
	resp = ts.do(t, request{method: "POST", path: "/auth/resend-verification", body: gin.H{"email": "root@example.com"}})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Admin accounts do not require verification", decode(t, resp)["error"])

	resp = ts.do(t, request{method: "POST", path: "/auth/resend-verification", body: gin.H{"email": "ghost@example.com"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, errorFields(t, resp), "email")
}

func TestSignup_Validation(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	ts.signupVerified(t, "Jane", "jane@example.com")

	// Act + Assert: пустой запрос
	resp := ts.do(t, request{method: "POST", path: "/auth/signup", body: gin.H{}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	fields := errorFields(t, resp)
	for _, f := range []string{"name", "email", "password", "password_confirmation"} {
		assert.Contains(t, fields, f)
	}

	// Подтверждение пароля не совпадает
	resp = ts.do(t, request{method: "POST", path: "/auth/signup", body: gin.H{
		"name": "John", "email": "john@example.com", "password": password, "password_confirmation": "different1",
	}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, errorFields(t, resp), "password_confirmation")

	// Email уже занят (без учета регистра)
	resp = ts.do(t, request{method: "POST", path: "/auth/signup", body: gin.H{
		"name": "Jane", "email": "JANE@example.com", "password": password, "password_confirmation": password,
	}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, []any{"The email has already been taken."}, errorFields(t, resp)["email"])

	// Некорректный JSON
	resp = ts.do(t, request{method: "POST", path: "/auth/signup", raw: "{not json"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	ts.signupVerified(t, "Jane", "jane@example.com")

	// Act
	wrongPassword := ts.login(t, "jane@example.com", "wrong-password")
	unknownEmail := ts.login(t, "ghost@example.com", password)

	// Assert: ответы неотличимы
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, "Invalid credentials", decode(t, wrongPassword)["error"])
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLogin_RateLimited(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	ts.signupVerified(t, "Jane", "jane@example.com")
	attempt := func(ip string) int {
		return ts.do(t, request{method: "POST", path: "/auth/login", ip: ip,
			body: gin.H{"email": "jane@example.com", "password": "wrong-password"}}).Code
	}

	// Act
	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, attempt("192.0.2.50"))
	}

	// Assert: шестая попытка за минуту отклоняется, другой адрес не затронут
	assert.Equal(t, []int{401, 401, 401, 401, 401, 429}, codes)
	assert.Equal(t, http.StatusUnauthorized, attempt("192.0.2.51"))

	// Даже верный пароль не проходит с заблокированного адреса
	resp := ts.do(t, request{method: "POST", path: "/auth/login", ip: "192.0.2.50",
		body: gin.H{"email": "jane@example.com", "password": password}})
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestLoginRevokesPreviousTokens(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	first := ts.signupVerified(t, "Jane", "jane@example.com")

	// Act
	resp := ts.login(t, "jane@example.com", password)
	require.Equal(t, http.StatusOK, resp.Code)
	second := decode(t, resp)["token"].(string)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, request{method: "GET", path: "/auth/profile", token: first}).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, request{method: "GET", path: "/auth/profile", token: second}).Code)
}

func TestLogout(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	token := ts.signupVerified(t, "Jane", "jane@example.com")

	// Act
	resp := ts.do(t, request{method: "POST", path: "/auth/logout", token: token})

	// Assert: токен больше не принимается
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Logged out successfully", decode(t, resp)["message"])

	resp = ts.do(t, request{method: "GET", path: "/auth/profile", token: token})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, resp)["error"])

	resp = ts.do(t, request{method: "GET", path: "/auth/profile"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestTasks_OwnershipAndCRUD(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	jane := ts.signupVerified(t, "Jane", "jane@example.com")
	john := ts.signupVerified(t, "John", "john@example.com")
	id := ts.createTask(t, jane, gin.H{
		"title": "Write report", "description": "Q3", "due_date": "2099-12-31", "tags": []string{"work", "urgent"},
	})
	path := "/tasks/" + id

	// Act + Assert: чужая задача недоступна
	resp := ts.do(t, request{method: "GET", path: path, token: john})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "Unauthorized to view this task", decode(t, resp)["error"])

	resp = ts.do(t, request{method: "PUT", path: path, token: john, body: gin.H{"title": "Hacked"}})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.do(t, request{method: "DELETE", path: path, token: john})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Несуществующая задача отличается от чужой
	resp = ts.do(t, request{method: "GET", path: "/tasks/8f1b7f3e-35a4-4a8e-9d7b-2f3f0c6c1a11", token: jane})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Task not found", decode(t, resp)["error"])

	resp = ts.do(t, request{method: "GET", path: "/tasks/not-a-uuid", token: jane})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Владелец видит задачу без изменений
	resp = ts.do(t, request{method: "GET", path: path, token: jane})
	require.Equal(t, http.StatusOK, resp.Code)
	task := decode(t, resp)["task"].(map[string]any)
	assert.Equal(t, "Write report", task["title"])
	assert.Equal(t, "pending", task["status"])
	assert.Equal(t, "2099-12-31", task["due_date"])
	tags := task["tags"].([]any)
	require.Len(t, tags, 2)
	assert.Equal(t, "work", tags[0].(map[string]any)["name"])

	// Частичное обновление: null очищает описание, теги не трогаются
	resp = ts.do(t, request{method: "PATCH", path: path, token: jane, body: gin.H{"status": "completed", "description": nil}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	task = decode(t, resp)["task"].(map[string]any)
	assert.Equal(t, "completed", task["status"])
	assert.Nil(t, task["description"])
	assert.Equal(t, "Write report", task["title"])
	assert.Len(t, task["tags"], 2)

	// Удаление
	resp = ts.do(t, request{method: "DELETE", path: path, token: jane})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Task deleted successfully", decode(t, resp)["message"])
	assert.Equal(t, http.StatusNotFound, ts.do(t, request{method: "GET", path: path, token: jane}).Code)
}

func TestTasks_ForeignUpdateIgnoresBody(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	jane := ts.signupVerified(t, "Jane", "jane@example.com")
	john := ts.signupVerified(t, "John", "john@example.com")
	id := ts.createTask(t, jane, gin.H{"title": "Write report"})
	path := "/tasks/" + id

	for _, body := range []string{`{"due_date":"garbage"}`, `{"title":5}`, `{"tags":"x"}`, `not json`} {
		// Act
		resp := ts.do(t, request{method: "PUT", path: path, token: john, raw: body})

		// Assert: чужой задаче не важно, что в теле
		assert.Equal(t, http.StatusForbidden, resp.Code, body)
		assert.Equal(t, "Unauthorized to update this task", decode(t, resp)["error"], body)
	}

	resp := ts.do(t, request{method: "GET", path: path, token: jane})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Write report", decode(t, resp)["task"].(map[string]any)["title"])
}

func TestTasks_Validation(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	jane := ts.signupVerified(t, "Jane", "jane@example.com")

	cases := []struct {
		name  string
		body  any
		field string
	}{
		{"missing title", gin.H{"description": "x"}, "title"},
		{"bad status", gin.H{"title": "T", "status": "archived"}, "status"},
		{"bad date", gin.H{"title": "T", "due_date": "2025-13-45"}, "due_date"},
		{"past date", gin.H{"title": "T", "due_date": "2000-01-01"}, "due_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			resp := ts.do(t, request{method: "POST", path: "/tasks", token: jane, body: tc.body})

			// Assert
			require.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())
			assert.Contains(t, errorFields(t, resp), tc.field)
		})
	}

	resp := ts.do(t, request{method: "POST", path: "/tasks", token: jane, raw: "["})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Нечисловой размер страницы не подменяется значением по умолчанию
	resp = ts.do(t, request{method: "GET", path: "/tasks?per_page=abc", token: jane})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())
	assert.Contains(t, errorFields(t, resp), "per_page")
}

func TestTasks_ListOnlyOwnAndTagForms(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	jane := ts.signupVerified(t, "Jane", "jane@example.com")
	john := ts.signupVerified(t, "John", "john@example.com")
	ts.createTask(t, jane, gin.H{"title": "Alpha", "tags": []string{"a"}})
	ts.createTask(t, jane, gin.H{"title": "Beta", "tags": []string{"b"}})
	ts.createTask(t, jane, gin.H{"title": "Gamma", "tags": []string{"c"}})
	ts.createTask(t, john, gin.H{"title": "John's", "tags": []string{"a"}})

	list := func(query string) map[string]any {
		t.Helper()
		resp := ts.do(t, request{method: "GET", path: "/tasks" + query, token: jane})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		return decode(t, resp)
	}

	// Act + Assert: все три формы параметра tags эквивалентны
	for _, q := range []string{"?tags=a,b", "?tags[]=a&tags[]=b", "?tags=a&tags=b"} {
		items := list(q)["items"].([]any)
		assert.Len(t, items, 2, q)
	}

	page := list("?per_page=2&page=2&sort_by=title&sort_order=asc")
	items := page["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Gamma", items[0].(map[string]any)["title"])
	assert.Equal(t, map[string]any{"current_page": 2.0, "last_page": 2.0, "per_page": 2.0, "total": 3.0}, page["pagination"])

	resp := ts.do(t, request{method: "GET", path: "/tasks?status=archived", token: jane})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestAdminRoutes(t *testing.T) {
	// Arrange
	ts := newTestServer(t)
	jane := ts.signupVerified(t, "Jane", "jane@example.com")
	ts.createTask(t, jane, gin.H{"title": "Alpha", "tags": []string{"deploy"}})
	admin := ts.seedAdmin(t, "root@example.com")

	// Act + Assert: обычный пользователь не допускается
	for _, path := range []string{"/admin/dashboard", "/admin/users", "/admin/tasks"} {
		resp := ts.do(t, request{method: "GET", path: path, token: jane})
		assert.Equal(t, http.StatusForbidden, resp.Code, path)
		assert.Equal(t, "Unauthorized. Admin access required.", decode(t, resp)["error"])
	}

	resp := ts.do(t, request{method: "GET", path: "/admin/dashboard", token: admin})
	require.Equal(t, http.StatusOK, resp.Code)
	stats := decode(t, resp)["statistics"].(map[string]any)
	assert.Equal(t, 2.0, stats["total_users"])
	assert.Equal(t, 1.0, stats["total_tasks"])
	assert.Equal(t, 1.0, stats["pending_tasks"])

	resp = ts.do(t, request{method: "GET", path: "/admin/users?role=user", token: admin})
	require.Equal(t, http.StatusOK, resp.Code)
	users := decode(t, resp)["items"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, 1.0, users[0].(map[string]any)["tasks_count"])

	resp = ts.do(t, request{method: "GET", path: "/admin/tasks?search=deploy", token: admin})
	require.Equal(t, http.StatusOK, resp.Code)
	tasks := decode(t, resp)["items"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, "jane@example.com", tasks[0].(map[string]any)["user"].(map[string]any)["email"])

	resp = ts.do(t, request{method: "GET", path: "/admin/users?verified=maybe", token: admin})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	// Arrange
	ts := newTestServer(t)

	// Act
	live := ts.do(t, request{method: "GET", path: "/healthz"})
	ready := ts.do(t, request{method: "GET", path: "/readyz"})
	m := ts.do(t, request{method: "GET", path: "/metrics"})

	// Assert
	assert.Equal(t, http.StatusOK, live.Code)
	require.Equal(t, http.StatusOK, ready.Code)
	body := decode(t, ready)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "healthy", body["checks"].(map[string]any)["database"])
	assert.NotContains(t, body["checks"], "redis")

	assert.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), `taskmanager_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
