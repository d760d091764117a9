package ginserver

import (
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/services/audit"
	"github.com/vshulcz/rtcobserver/internal/services/samples"
)

// Handler exposes the collector endpoints used by agents and operators.
type Handler struct {
	svc     *samples.Service
	metrics http.Handler
}

type HandlerOption func(*Handler)

// WithMetricsHandler serves h under GET /metrics.
func WithMetricsHandler(h http.Handler) HandlerOption {
	return func(hd *Handler) { hd.metrics = h }
}

// NewHandler wires a samples service into a gin-compatible HTTP handler.
func NewHandler(svc *samples.Service, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc}
	for _, o := range opts {
		o(h)
	}
	return h
}

var samplesBatchPool = sync.Pool{
	New: func() any {
		batch := make([]domain.ClientSample, 0, 64)
		return &batch
	},
}

func decodeSamplesBatch(r io.Reader) ([]domain.ClientSample, func(), error) {
	buf, ok := samplesBatchPool.Get().(*[]domain.ClientSample)
	if !ok {
		fresh := make([]domain.ClientSample, 0, 64)
		buf = &fresh
	}
	items := (*buf)[:0]
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		samplesBatchPool.Put(buf)
		return nil, func() {}, err
	}
	cleanup := func() {
		clear(items)
		*buf = items[:0]
		samplesBatchPool.Put(buf)
	}
	return items, cleanup, nil
}

func cloneSamples(items []domain.ClientSample) []domain.ClientSample {
	if len(items) == 0 {
		return nil
	}
	clone := make([]domain.ClientSample, len(items))
	copy(clone, items)
	return clone
}

// IngestSamples handles `POST /samples` with a JSON array of client samples.
func (h *Handler) IngestSamples(c *gin.Context) {
	items, release, err := decodeSamplesBatch(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	defer release()
	items = cloneSamples(items)
	ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
	n, err := h.svc.Ingest(ctx, items)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingested": n})
}

// ListClients handles `GET /clients`.
func (h *Handler) ListClients(c *gin.Context) {
	clients, err := h.svc.Clients(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// LatestSample handles `GET /clients/:id/latest`.
func (h *Handler) LatestSample(c *gin.Context) {
	s, err := h.svc.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// History handles `GET /clients/:id/samples`.
func (h *Handler) History(c *gin.Context) {
	items, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Index renders a basic HTML page listing the known clients.
func (h *Handler) Index(c *gin.Context) {
	clients, err := h.svc.Clients(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>clients</title>")
	sb.WriteString("<style>body{font-family:system-ui,Arial,sans-serif}table{border-collapse:collapse}td,th{border:1px solid #ddd;padding:6px 10px}</style>")
	sb.WriteString("</head><body>")
	sb.WriteString("<h1>Clients</h1>")
	sb.WriteString("<table><tr><th>Client</th><th>Call</th><th>Samples</th><th>Last seq</th><th>Updated</th></tr>")
	for _, cl := range clients {
		sb.WriteString("<tr><td>")
		sb.WriteString(html.EscapeString(cl.ClientID))
		sb.WriteString("</td><td>")
		sb.WriteString(html.EscapeString(cl.CallID))
		sb.WriteString("</td><td>")
		sb.WriteString(strconv.FormatInt(cl.Samples, 10))
		sb.WriteString("</td><td>")
		sb.WriteString(strconv.FormatInt(cl.LastSeq, 10))
		sb.WriteString("</td><td>")
		sb.WriteString(strconv.FormatInt(cl.UpdatedAt, 10))
		sb.WriteString("</td></tr>")
	}
	sb.WriteString("</table></body></html>")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}

// Ping proxies `GET /ping` to the storage health check.
func (h *Handler) Ping(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, "db ping error: %v", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

func httpError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrNotFound):
		c.String(http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		c.String(http.StatusBadRequest, "bad request")
	default:
		c.String(http.StatusInternalServerError, "internal error")
	}
}
