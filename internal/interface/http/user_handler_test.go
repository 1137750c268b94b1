package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	userapp "github.com/oksasatya/users-service/internal/application"
	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/internal/domain/repository"
	mockrepository "github.com/oksasatya/users-service/internal/domain/repository/mock"
	"github.com/oksasatya/users-service/internal/infrastructure/memory"
	handlers "github.com/oksasatya/users-service/internal/interface/http"
	"github.com/oksasatya/users-service/internal/interface/middleware"
	"github.com/oksasatya/users-service/internal/router"
	"github.com/oksasatya/users-service/internal/router/modules"
	"github.com/oksasatya/users-service/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type envelope struct {
	Status    int             `json:"status"`
	RequestID string          `json:"requestId"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     json.RawMessage `json:"error"`
}

type userBody struct {
	EmailAddress string `json:"emailAddress"`
	Name         string `json:"name"`
	Password     string `json:"password"`
}

func newServer(t *testing.T, repo repository.UserRepository) http.Handler {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	reg := router.NewRegistry(engine, "")
	reg.Add(modules.NewUserModule(handlers.NewUserHandler(userapp.NewService(repo, logger), logger)))
	reg.RegisterAll()
	return engine
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestRegisterScenario(t *testing.T) {
	repo := memory.NewUserRepository()
	srv := newServer(t, repo)

	rec, env := do(t, srv, http.MethodPost, "/users", userBody{"a@b.com", "James", "Testing!23"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)
	require.NotEmpty(t, env.RequestID)
	require.JSONEq(t, `{"emailAddress":"a@b.com","name":"James"}`, string(env.Data))
	require.NotContains(t, rec.Body.String(), "Testing!23")
	require.NotContains(t, rec.Body.String(), "argon2")

	stored, err := repo.FindByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.Equal(t, "a@b.com", stored.EmailAddress())
	require.NotEqual(t, "Testing!23", stored.Password())
}

func TestLoginScenario(t *testing.T) {
	srv := newServer(t, memory.NewUserRepository())

	rec, _ := do(t, srv, http.MethodPost, "/users", userBody{"a@b.com", "James", "Testing!23"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, srv, http.MethodPost, "/login", map[string]string{"emailAddress": "a@b.com", "password": "Testing!23"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"emailAddress":"a@b.com","name":"James"}`, string(env.Data))

	rec, env = do(t, srv, http.MethodPost, "/login", map[string]string{"emailAddress": "a@b.com", "password": "Wrong!234"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, env.Success)
	require.Equal(t, "invalid credentials", env.Message)
	require.Empty(t, env.Data)
	require.NotContains(t, rec.Body.String(), "James")

	rec, _ = do(t, srv, http.MethodPost, "/login", map[string]string{"emailAddress": "nobody@b.com", "password": "Testing!23"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// a missing password is a malformed request, not a failed credential check
	rec, env = do(t, srv, http.MethodPost, "/login", map[string]string{"emailAddress": "a@b.com", "password": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid payload", env.Message)
}

func TestGetUserScenario(t *testing.T) {
	srv := newServer(t, memory.NewUserRepository())

	rec, env := do(t, srv, http.MethodGet, "/users/never@registered.com", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "user not found", env.Message)

	do(t, srv, http.MethodPost, "/users", userBody{"a@b.com", "James", "Testing!23"})
	rec, env = do(t, srv, http.MethodGet, "/users/a@b.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"emailAddress":"a@b.com","name":"James"}`, string(env.Data))
}

func TestRegisterValidationErrors(t *testing.T) {
	srv := newServer(t, memory.NewUserRepository())

	cases := []struct {
		name string
		body any
		msg  string
	}{
		{"invalid email", userBody{"thisisaninvalidemail", "James", "Testing!23"}, "Invalid email address"},
		{"weak password", userBody{"a@b.com", "James", "testing!23"}, "Password must contain at least one uppercase letter"},
		{"blank name", userBody{"a@b.com", "  ", "Testing!23"}, "Name must not be empty"},
		{"missing field", map[string]string{"emailAddress": "a@b.com"}, "invalid payload"},
		{"malformed json", `{"emailAddress":`, "invalid payload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(t, srv, http.MethodPost, "/users", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.msg, env.Message)
		})
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	srv := newServer(t, memory.NewUserRepository())

	rec, _ := do(t, srv, http.MethodPost, "/users", userBody{"a@b.com", "James", "Testing!23"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, srv, http.MethodPost, "/users", userBody{"A@B.com", "John", "Testing!23"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"code":"USER_ALREADY_EXISTS"}`, string(env.Error))
}

func TestDatabaseErrorsAreNotLeaked(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mockrepository.NewMockUserRepository(ctrl)
	repo.EXPECT().FindByEmail(gomock.Any(), "a@b.com").
		Return(nil, apperror.Database(errors.New("dial tcp 10.0.0.5:5432: refused"), "select"))
	srv := newServer(t, repo)

	rec, env := do(t, srv, http.MethodGet, "/users/a@b.com", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", env.Message)
	require.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestConcurrentRegistrations(t *testing.T) {
	const n = 16
	repo := memory.NewUserRepository()
	srv := newServer(t, repo)

	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, _ := json.Marshal(userBody{fmt.Sprintf("user%d@test.com", i), "User", "Testing!23"})
			req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		require.Equal(t, http.StatusCreated, code)
	}

	require.Equal(t, n, repo.Len())
	for i := 0; i < n; i++ {
		rec, _ := do(t, srv, http.MethodGet, fmt.Sprintf("/users/user%d@test.com", i), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
