package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/churnsight/backend/internal/assessment"
	"github.com/churnsight/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine *assessment.Engine
}

func NewWebSocketHandler(engine *assessment.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
	}
}

// HandleConnection serves the batch-assessment stream. The client sends
// {"type":"analyze_all"} and receives a progress message per customer
// followed by a summary.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "analyze_all" {
			continue
		}

		logger.Info("Starting streamed batch assessment")

		if err := h.streamBatch(c); err != nil {
			logger.Error("Batch stream failed", zap.Error(err))
			h.sendError(c, "Failed to run batch assessment")
		}
	}
}

func (h *WebSocketHandler) streamBatch(c *websocket.Conn) error {
	ctx := context.Background()

	h.send(c, map[string]interface{}{
		"type": "status",
		"msg":  "Batch assessment started",
	})

	result, err := h.engine.AssessAll(ctx, func(p assessment.BatchProgress) {
		h.send(c, map[string]interface{}{
			"type":        "progress",
			"completed":   p.Completed,
			"total":       p.Total,
			"customer_id": p.CustomerID,
			"score":       p.Score,
			"failed":      p.Failed,
		})
	})
	if err != nil {
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":    "complete",
		"summary": result.Summary,
		"skipped": result.Skipped,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msg map[string]interface{}) {
	if err := c.WriteJSON(msg); err != nil {
		logger.Warn("Failed to write WebSocket message", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
