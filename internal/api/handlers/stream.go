package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"prosumer-sim/internal/api/models"
	"prosumer-sim/internal/backtest"
)

// streamReadTimeout bounds the wait for the request message.
const streamReadTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream handles GET /api/v1/simulate/stream. The client sends one
// SimulateRequest as its first message. The server answers with a "step"
// message per realized slot and a final "summary" (or "error") message,
// then closes the connection. Closing the socket early cancels the run.
func (h *SimulateHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	var req models.SimulateRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.streamError(conn, badRequest("INVALID_REQUEST", "%v", err))
		return
	}
	conn.SetReadDeadline(time.Time{})

	cfg, err := h.buildConfig(req.Simulation, req.Config)
	if err != nil {
		h.streamError(conn, err)
		return
	}
	steps, ds, err := h.prepare(cfg, req.Dataset)
	if err != nil {
		h.streamError(conn, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// any read error, including a close frame, means the client is gone
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	res, saved, err := h.run(ctx, cfg, ds, steps, func(r backtest.StepRow) error {
		return writeEnvelope(conn, models.StreamStep, convertStep(r))
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.streamError(conn, err)
		}
		return
	}

	summary := models.SimulateResponse{
		ID:      res.ID,
		Status:  "completed",
		Saved:   saved,
		Summary: buildSummary(res, cfg),
	}
	if err := writeEnvelope(conn, models.StreamSummary, summary); err != nil {
		h.log.Debug("stream summary", zap.String("run_id", res.ID), zap.Error(err))
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(time.Second))
}

func (h *SimulateHandler) streamError(conn *websocket.Conn, err error) {
	detail := models.ErrorDetail{Code: "SIMULATION_ERROR", Message: err.Error()}
	var br *errBadRequest
	if errors.As(err, &br) {
		detail.Code = br.code
	} else {
		h.log.Error("stream failed", zap.Error(err))
	}
	if err := writeEnvelope(conn, models.StreamError, detail); err != nil {
		h.log.Debug("stream error", zap.Error(err))
	}
}

func writeEnvelope(conn *websocket.Conn, msgType string, payload any) error {
	msg, err := models.NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}
