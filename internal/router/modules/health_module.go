package modules

import (
	"context"
	"expvar"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is implemented by backends that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthModule serves liveness, readiness and expvar.
type HealthModule struct {
	backend any
}

// NewHealthModule takes the user repository; readiness pings it when it
// implements Pinger and always succeeds otherwise.
func NewHealthModule(backend any) *HealthModule { return &HealthModule{backend: backend} }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	rg.GET("/readyz", m.ready)
	rg.GET("/debug/vars", gin.WrapH(expvar.Handler()))
}

func (m *HealthModule) ready(c *gin.Context) {
	p, ok := m.backend.(Pinger)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
