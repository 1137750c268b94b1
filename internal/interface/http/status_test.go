package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/users-service/internal/domain/apperror"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", apperror.ErrUserDoesNotExist, http.StatusNotFound, "user not found"},
		{"wrapped not found", fmt.Errorf("lookup: %w", apperror.ErrUserDoesNotExist), http.StatusNotFound, "user not found"},
		{"incorrect password", apperror.ErrIncorrectPassword, http.StatusUnauthorized, "invalid credentials"},
		{"already exists", apperror.ErrUserAlreadyExists, http.StatusConflict, "user already exists"},
		{"validation", apperror.Validation("Invalid email address"), http.StatusBadRequest, "Invalid email address"},
		{"database", apperror.Database(errors.New("password=secret host=db"), "select"), http.StatusInternalServerError, "internal server error"},
		{"application", apperror.Application("Failed to hash password"), http.StatusInternalServerError, "internal server error"},
		{"canceled", context.Canceled, http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := statusFor(tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.msg, msg)
		})
	}
}
