package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vishal2612200/websocket-relay/broadcast"
)

type broadcastRequest struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Level   string `json:"level"`
}

// registerBroadcastRoute wires the operator broadcast trigger.
func registerBroadcastRoute(group *gin.RouterGroup, broadcaster *broadcast.Broadcaster, logger *slog.Logger) {
	log := logger.With(slog.String("component", "broadcast_api"))

	group.POST("/broadcast", func(c *gin.Context) {
		var req broadcastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON"})
			return
		}
		if req.Message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Message is required"})
			return
		}
		if req.Level != "" && !broadcast.ValidLevels[req.Level] {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Level must be one of: info, warning, error, success"})
			return
		}

		stored, err := broadcaster.Broadcast(c.Request.Context(), req.Message, req.Title, req.Level)
		if err != nil {
			log.Error("broadcast failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Broadcast message sent successfully",
			"data": gin.H{
				"message":          req.Message,
				"title":            req.Title,
				"level":            req.Level,
				"sessions_updated": stored,
			},
		})
	})
}
