package calculator

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"pocket-calculator/internal/engine"
	"pocket-calculator/internal/observability"
)

// Stream handles GET /calculator/sessions/{id}/ws, a live keypad. Every
// text frame is one key label; every reply is a KeyMessage. The first frame
// sent carries the current display with an empty key.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r, "stream")
	if !ok {
		return
	}

	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx).With(zap.String("session_id", sess.ID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "stream")))
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("keypad stream opened")

	if err := conn.WriteJSON(KeyMessage{Display: sess.Display()}); err != nil {
		logger.Warn("keypad stream write failed", zap.Error(err))
		return
	}

	for index := 0; ; index++ {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("keypad stream closed unexpectedly", zap.Error(err))
				return
			}
			logger.Info("keypad stream closed", zap.Int("keys", index))
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		key := strings.TrimSpace(string(data))
		reply := KeyMessage{Key: key}

		sess.Do(func(calc *engine.Session) {
			step, err := applyKey(ctx, logger, calc, index, key)
			if err != nil {
				reply.Error = err.Error()
				reply.Display = calc.Buffer()
				return
			}
			reply.Display = step.Display
			reply.State = step.State
		})

		if reply.Error != "" {
			errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "stream")))
		}

		if err := conn.WriteJSON(reply); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				logger.Warn("keypad stream write failed", zap.Error(err))
			}
			return
		}
	}
}
