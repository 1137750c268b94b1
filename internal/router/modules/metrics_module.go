package modules

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MetricsModule serves the Prometheus scrape endpoint.
type MetricsModule struct {
	path    string
	handler http.Handler
}

func NewMetricsModule(path string, h http.Handler) *MetricsModule {
	if path == "" {
		path = "/metrics"
	}
	return &MetricsModule{path: path, handler: h}
}

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	rg.GET(m.path, gin.WrapH(m.handler))
}
