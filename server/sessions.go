package server

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vishal2612200/websocket-relay/session"
)

type extendRequest struct {
	TTL int `json:"ttl"`
}

// registerSessionRoutes wires the thin read/write wrappers over the session
// store: get, extend, delete and message history.
func registerSessionRoutes(group *gin.RouterGroup, store session.Store, logger *slog.Logger) {
	log := logger.With(slog.String("component", "session_api"))

	group.GET("/sessions/:id", func(c *gin.Context) {
		sessionID := c.Param("id")
		info, err := store.Info(c.Request.Context(), sessionID)
		if err != nil {
			log.Error("failed to get session info", slog.String("session_id", sessionID), slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "session_id": sessionID})
			return
		}
		if info == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session not found", "session_id": sessionID})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"session_id": sessionID,
			"data": gin.H{
				"count":         info.State.Count,
				"last_activity": info.State.LastActivity,
				"remaining_ttl": int(info.RemainingTTL.Seconds()),
			},
		})
	})

	group.POST("/sessions/:id/extend", func(c *gin.Context) {
		sessionID := c.Param("id")

		var req extendRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON"})
				return
			}
		}
		ttl := time.Duration(req.TTL) * time.Second
		if req.TTL <= 0 {
			ttl = time.Hour
		}

		ok, err := store.Extend(c.Request.Context(), sessionID, ttl)
		if err != nil {
			log.Error("failed to extend session", slog.String("session_id", sessionID), slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "session_id": sessionID})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session not found", "session_id": sessionID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session TTL extended successfully"})
	})

	group.DELETE("/sessions/:id", func(c *gin.Context) {
		sessionID := c.Param("id")
		ok, err := store.Delete(c.Request.Context(), sessionID)
		if err != nil {
			log.Error("failed to delete session", slog.String("session_id", sessionID), slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "session_id": sessionID})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session not found or already deleted", "session_id": sessionID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session deleted successfully"})
	})

	group.GET("/sessions/:id/messages", func(c *gin.Context) {
		sessionID := c.Param("id")
		messages, err := store.ListMessages(c.Request.Context(), sessionID)
		if err != nil {
			log.Error("failed to list messages", slog.String("session_id", sessionID), slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "session_id": sessionID})
			return
		}

		sort.SliceStable(messages, func(i, j int) bool {
			return messages[i].Timestamp < messages[j].Timestamp
		})
		if messages == nil {
			messages = []session.Message{}
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"session_id": sessionID,
			"messages":   messages,
			"count":      len(messages),
		})
	})
}
