package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/users-service/internal/interface/http"
)

// UserModule exposes registration, login and lookup.
// POST /users, POST /login, GET /users/:email_address
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.POST("/users", m.Handler.Register)
	rg.POST("/login", m.Handler.Login)
	rg.GET("/users/:email_address", m.Handler.GetUser)
}
