package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, _ *zap.Logger, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/", h.Index)

	r.POST("/samples", h.IngestSamples)
	r.POST("/samples/", h.IngestSamples)

	r.GET("/clients", h.ListClients)
	r.GET("/clients/:id/latest", h.LatestSample)
	r.GET("/clients/:id/samples", h.History)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	return r
}
