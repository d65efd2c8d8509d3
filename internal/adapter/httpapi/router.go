package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shotlist/internal/list"
	"shotlist/internal/shared"
)

// Options configures the router.
type Options struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Env      string
}

// NewRouter builds the gin engine serving every registered list kind under
// /v1, plus health and metrics endpoints.
func NewRouter(opts Options, services ...Service) *gin.Engine {
	if opts.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	for _, svc := range services {
		h := handler{svc: svc, log: log.With("list_kind", svc.Kind())}
		kind := svc.Kind()

		v1.GET("/templates/"+kind, h.get(func(*gin.Context) list.Ref { return list.Template() }))
		v1.PUT("/templates/"+kind, h.save(func(*gin.Context) list.Ref { return list.Template() }))

		for scope, group := range map[string]func(*gin.Context) list.Ref{
			"users":    func(c *gin.Context) list.Ref { return list.User(c.Param("owner")) },
			"projects": func(c *gin.Context) list.Ref { return list.Project(c.Param("owner")) },
		} {
			base := "/" + scope + "/:owner/lists/" + kind
			v1.GET(base, h.get(group))
			v1.PUT(base, h.save(group))
			v1.POST(base+"/reset", h.reset(group))
			v1.POST(base+"/items", h.addItem(group))
			v1.DELETE(base+"/items/:itemID", h.deleteItem(group))
			v1.PATCH(base+"/items", h.batchUpdate(group))
			v1.DELETE(base+"/items", h.batchDelete(group))
		}
	}
	return r
}

type handler struct {
	svc Service
	log *slog.Logger
}

type refFunc func(*gin.Context) list.Ref

func (h handler) get(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, aerr := h.svc.Get(c.Request.Context(), ref(c))
		if aerr != nil {
			h.respondError(c, aerr)
			return
		}
		c.JSON(http.StatusOK, l)
	}
}

func (h handler) save(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := h.readBody(c)
		if !ok {
			return
		}
		if aerr := h.svc.Save(c.Request.Context(), ref(c), body); aerr != nil {
			h.respondError(c, aerr)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h handler) reset(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, aerr := h.svc.ResetFromTemplate(c.Request.Context(), ref(c))
		if aerr != nil {
			h.respondError(c, aerr)
			return
		}
		c.JSON(http.StatusCreated, l)
	}
}

func (h handler) addItem(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := h.readBody(c)
		if !ok {
			return
		}
		if aerr := h.svc.AddItem(c.Request.Context(), ref(c), body); aerr != nil {
			h.respondError(c, aerr)
			return
		}
		c.Status(http.StatusCreated)
	}
}

func (h handler) deleteItem(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if aerr := h.svc.DeleteItem(c.Request.Context(), ref(c), c.Param("itemID")); aerr != nil {
			h.respondError(c, aerr)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h handler) batchUpdate(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Updates []list.ItemPatch `json:"updates"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, badBody(err))
			return
		}
		if aerr := h.svc.BatchUpdate(c.Request.Context(), ref(c), req.Updates); aerr != nil {
			h.respondError(c, aerr)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h handler) batchDelete(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, badBody(err))
			return
		}
		if aerr := h.svc.BatchDelete(c.Request.Context(), ref(c), req.IDs); aerr != nil {
			h.respondError(c, aerr)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h handler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.respondError(c, badBody(err))
		return nil, false
	}
	return body, true
}

func badBody(err error) *shared.Error {
	return shared.New(shared.CodeValidationFailed,
		"malformed request body: "+err.Error(),
		"The request could not be understood.",
		"httpapi").WithCause(err)
}

// respondError maps the taxonomy onto HTTP statuses. Clients only ever see
// the code, the user message and field detail; developer messages stay in
// the logs.
func (h handler) respondError(c *gin.Context, aerr *shared.Error) {
	status := http.StatusInternalServerError
	switch {
	case aerr.Domain == shared.DomainValidation:
		status = http.StatusBadRequest
	case aerr.Code == shared.CodeAuthUserNotFound, aerr.Code == shared.CodeStoreNotFound:
		status = http.StatusNotFound
	case aerr.Domain == shared.DomainAuth:
		status = http.StatusUnauthorized
	case aerr.Code == shared.CodeStorePermissionDenied:
		status = http.StatusForbidden
	case aerr.Code == shared.CodeStoreUnavailable, aerr.Domain == shared.DomainNetwork:
		status = http.StatusServiceUnavailable
	}

	h.log.Error("request failed",
		"status", status, "code", aerr.Code, "context", aerr.Context, "error", aerr.Message)

	body := gin.H{"code": aerr.Code, "message": aerr.UserMessage, "retryable": aerr.Retryable}
	if fe, ok := aerr.Metadata["fieldErrors"]; ok {
		body["fieldErrors"] = fe
	}
	c.AbortWithStatusJSON(status, body)
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
