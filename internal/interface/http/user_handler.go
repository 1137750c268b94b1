package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/users-service/internal/application"
	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/internal/domain/entity"
	"github.com/oksasatya/users-service/pkg/helpers"
	"github.com/oksasatya/users-service/pkg/response"
	"github.com/oksasatya/users-service/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	EmailAddress string `json:"emailAddress" binding:"required,max=320"`
	Name         string `json:"name" binding:"required,max=256"`
	Password     string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	EmailAddress string `json:"emailAddress" binding:"required,max=320"`
	Password     string `json:"password" binding:"required,pwd"`
}

// userResponse is the public view of a user. It never carries the hash.
type userResponse struct {
	EmailAddress string `json:"emailAddress"`
	Name         string `json:"name"`
	Age          *int   `json:"age,omitempty"`
}

func toUserResponse(u *entity.User) userResponse {
	d := u.Details()
	return userResponse{EmailAddress: d.EmailAddress, Name: d.Name, Age: d.Age}
}

// Register handles POST /users.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), req.EmailAddress, req.Name, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "user registered", nil)
}

// Login handles POST /login.
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Login(c.Request.Context(), req.EmailAddress, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "login successful", nil)
}

// GetUser handles GET /users/:email_address.
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.Svc.GetUserByEmail(c.Request.Context(), c.Param("email_address"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user found", nil)
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	fields := logrus.Fields{
		"request_id": c.GetString("request_id"),
		"kind":       apperror.KindOf(err).String(),
		"status":     status,
	}
	if status >= http.StatusInternalServerError {
		helpers.LogError(h.Logger, "request failed", err, fields)
	} else if h.Logger != nil {
		h.Logger.WithFields(fields).WithError(err).Debug("request rejected")
	}

	response.Error[any](c, status, msg, gin.H{"code": apperror.KindOf(err).String()})
}

// statusFor maps an error to the HTTP status and the message safe to return.
// Details of infrastructure errors never reach the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrUserDoesNotExist):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, apperror.ErrIncorrectPassword):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, apperror.ErrUserAlreadyExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, apperror.ErrValidation):
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.Detail() != "" {
			return http.StatusBadRequest, appErr.Detail()
		}
		return http.StatusBadRequest, "invalid payload"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
