package handler

import (
	"matchago/backend/internal/chathub"
	"matchago/backend/internal/config"
	"matchago/backend/internal/match"
	"matchago/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler wires the HTTP surface to the matchmaking engine and the hub.
type Handler struct {
	Hub     *chathub.ManagerService
	Engine  *match.Engine
	Storage storage.Storage
	Cfg     *config.Config
	Log     *zap.SugaredLogger
}

func NewHandler(hub *chathub.ManagerService, engine *match.Engine,
	st storage.Storage, cfg *config.Config, log *zap.SugaredLogger) *Handler {
	return &Handler{Hub: hub, Engine: engine, Storage: st, Cfg: cfg, Log: log}
}

// Register mounts all routes.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api", h.AuthRequired())
	{
		api.POST("/match", h.PostMatch)
		api.GET("/match/pending", h.GetPending)
		api.POST("/match/leave", h.PostLeave)
		api.POST("/heartbeat", h.PostHeartbeat)
	}
}
