package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/peerkit/config"
	"github.com/kbukum/peerkit/errors"
	"github.com/kbukum/peerkit/logger"
	"github.com/kbukum/peerkit/peers"
	"github.com/kbukum/peerkit/registry"
	"github.com/kbukum/peerkit/replication"
	"github.com/kbukum/peerkit/server"
	"github.com/kbukum/peerkit/server/middleware"
	"github.com/kbukum/peerkit/validation"
)

// Refresher reloads configuration and reports the changed keys.
// *config.Environment implements it.
type Refresher interface {
	Reload(ctx context.Context) (config.KeySet, error)
}

// PeerSource exposes the current peer nodes. *peers.Set implements it.
type PeerSource interface {
	Nodes() []*peers.Node
}

// Handler serves the registry routes.
type Handler struct {
	reg     registry.Registry
	peers   PeerSource
	refresh Refresher
	log     *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(reg registry.Registry, peerSource PeerSource, refresh Refresher, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handler{reg: reg, peers: peerSource, refresh: refresh, log: log.WithComponent("api")}
}

// Routes mounts every route under contextPath. The replication endpoint is
// rate limited per calling peer.
func (h *Handler) Routes(r gin.IRouter, contextPath string, limit middleware.RateLimitConfig) {
	root := r.Group(contextPath)
	root.POST("/actuator/refresh", h.Refresh)

	v2 := root.Group("/eureka/v2")
	v2.GET("/peers", h.ListPeers)
	v2.POST("/"+replication.BatchPath, middleware.RateLimit(limit), h.ReplicateBatch)

	apps := v2.Group("/apps")
	apps.GET("", h.ListApps)
	apps.POST("/:app", h.Register)
	apps.PUT("/:app/:id", h.Renew)
	apps.DELETE("/:app/:id", h.Cancel)
	apps.PUT("/:app/:id/status", h.StatusUpdate)
}

// PeerView is one peer node as listed by GET /eureka/v2/peers.
type PeerView struct {
	URL  string `json:"url"`
	Host string `json:"host"`
}

func (h *Handler) ListPeers(c *gin.Context) {
	nodes := h.peers.Nodes()
	out := make([]PeerView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, PeerView{URL: n.URL(), Host: n.Host()})
	}
	server.RespondOK(c, gin.H{"peers": out})
}

// Refresh reloads configuration. A failed topology update surfaces here as
// a 500 with the error body.
func (h *Handler) Refresh(c *gin.Context) {
	keys, err := h.refresh.Reload(c.Request.Context())
	if err != nil {
		h.log.Error("refresh failed", logger.Fields(logger.FieldError, err.Error()))
		if _, ok := errors.AsAppError(err); !ok {
			err = errors.Internal(err)
		}
		server.RespondWithError(c, err)
		return
	}
	changed := []string{}
	if keys != nil {
		changed = keys.Keys()
	}
	server.RespondOK(c, changed)
}

func (h *Handler) ReplicateBatch(c *gin.Context) {
	var batch replication.Batch
	if err := c.ShouldBindJSON(&batch); err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	server.RespondOK(c, replication.Apply(c.Request.Context(), h.reg, batch))
}

func (h *Handler) ListApps(c *gin.Context) {
	server.RespondOK(c, gin.H{"applications": h.reg.Applications()})
}

type registerRequest struct {
	Instance registry.Instance `json:"instance"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	inst := req.Instance
	if inst.App == "" {
		inst.App = c.Param("app")
	}
	v := validation.New().
		Required("instance.instanceId", inst.ID).
		Required("instance.hostName", inst.HostName).
		Host("instance.hostName", inst.HostName).
		Custom(registry.NormalizeApp(inst.App) == registry.NormalizeApp(c.Param("app")), "instance.app", "must match the path")
	if inst.Status != "" {
		v.OneOf("instance.status", string(inst.Status), registry.Statuses)
	}
	if err := v.Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := h.reg.Register(c.Request.Context(), inst, isReplication(c)); err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondNoContent(c)
}

func (h *Handler) Renew(c *gin.Context) {
	if err := h.reg.Renew(c.Request.Context(), c.Param("app"), c.Param("id"), isReplication(c)); err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) Cancel(c *gin.Context) {
	if err := h.reg.Cancel(c.Request.Context(), c.Param("app"), c.Param("id"), isReplication(c)); err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) StatusUpdate(c *gin.Context) {
	value := c.Query("value")
	if err := validation.New().Required("value", value).OneOf("value", value, registry.Statuses).Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	err := h.reg.StatusUpdate(c.Request.Context(), c.Param("app"), c.Param("id"), registry.Status(value), isReplication(c))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func isReplication(c *gin.Context) bool {
	return c.GetHeader(replication.HeaderReplication) == "true"
}
