package router

import (
	"github.com/oksasatya/users-service/internal/container"
	handlers "github.com/oksasatya/users-service/internal/interface/http"
	"github.com/oksasatya/users-service/internal/router/modules"
)

// InitModules wires every module from the container singletons. Call once
// during startup, after the container has been populated.
func InitModules(r *Registry) {
	logger := container.GetLogger()

	r.Add(modules.NewUserModule(handlers.NewUserHandler(container.GetUserService(), logger)))

	r.AddRoot(modules.NewHealthModule(container.GetUserRepository()))
	cfg := container.GetConfig()
	if t := container.GetTelemetry(); t != nil && cfg.Telemetry.MetricsEnabled {
		r.AddRoot(modules.NewMetricsModule(cfg.Telemetry.MetricsPath, t.Handler()))
	}
}
