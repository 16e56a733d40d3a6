package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celerix-dev/celerix-passport/internal/engine"
	"github.com/celerix-dev/celerix-passport/pkg/passport"
	"github.com/celerix-dev/celerix-passport/pkg/schema"
	"github.com/celerix-dev/celerix-passport/pkg/sdk"
)

// CallerHeader carries the host-authenticated caller identity.
const CallerHeader = "X-Caller-ID"

// Error codes returned next to the message in every error body.
const (
	CodeCallerIsNotOwner = passport.ErrorCode
	CodeNotFound         = "RecordNotFound"
	CodeBadRequest       = "BadRequest"
	CodeInternal         = "Internal"
)

type Handler struct {
	Store sdk.PassportStore
}

// Register mounts the passport routes under /api plus /healthz and /metrics.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/passports", h.List)
		apiGroup.POST("/passports", h.Deploy)
		apiGroup.GET("/passports/:id/name", h.DisplayName)
		apiGroup.GET("/passports/:id/active", h.IsActive)
		apiGroup.POST("/passports/:id/deactivate", h.Deactivate)
		apiGroup.GET("/passports/:id/metadata", h.Metadata)
	}
}

func (h *Handler) List(c *gin.Context) {
	ids, err := h.Store.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, ids)
}

func (h *Handler) Deploy(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req schema.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, schema.ErrorResponse{Error: err.Error(), Code: CodeBadRequest})
		return
	}
	id, err := h.Store.Deploy(c.Request.Context(), caller, passport.Args{
		Surname:   req.Surname,
		GivenName: req.GivenName,
		Birthday:  req.Birthday,
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schema.DeployResponse{ID: id})
}

// DisplayName works without a caller header; anonymous callers get the surname.
func (h *Handler) DisplayName(c *gin.Context) {
	var caller passport.AccountID
	if c.GetHeader(CallerHeader) != "" {
		var ok bool
		if caller, ok = callerFrom(c); !ok {
			return
		}
	}
	name, err := h.Store.DisplayName(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.NameResponse{Name: name})
}

func (h *Handler) IsActive(c *gin.Context) {
	active, err := h.Store.IsActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.ActiveResponse{Active: active})
}

func (h *Handler) Deactivate(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	if err := h.Store.Deactivate(c.Request.Context(), c.Param("id"), caller); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Metadata(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	meta, err := h.Store.Metadata(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.MetadataResponse{Metadata: meta})
}

func callerFrom(c *gin.Context) (passport.AccountID, bool) {
	caller, err := passport.ParseAccountID(c.GetHeader(CallerHeader))
	if err != nil {
		c.JSON(http.StatusBadRequest, schema.ErrorResponse{
			Error: CallerHeader + ": " + err.Error(),
			Code:  CodeBadRequest,
		})
		return caller, false
	}
	return caller, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, passport.ErrCallerIsNotOwner):
		c.JSON(http.StatusForbidden, schema.ErrorResponse{Error: err.Error(), Code: CodeCallerIsNotOwner})
	case errors.Is(err, engine.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, schema.ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case errors.Is(err, engine.ErrNotText), errors.Is(err, passport.ErrInvalidAccountID):
		c.JSON(http.StatusBadRequest, schema.ErrorResponse{Error: err.Error(), Code: CodeBadRequest})
	default:
		c.JSON(http.StatusInternalServerError, schema.ErrorResponse{Error: err.Error(), Code: CodeInternal})
	}
}
