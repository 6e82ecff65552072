package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/roomcast/internal/app/orch"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(ctl.opts.WriteWait))
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				c.Close()
				return
			}
		}
	}
}

// readPump owns the session: events are handled one at a time, and
// whatever ends the loop, the session is disconnected.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sess *orch.Session, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sess.ID())).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(context.WithoutCancel(ctx), sess)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(sess.ID())).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		ctl.handleSignal(ctx, sess, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sess *orch.Session, c *WsSignalConn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "signal").Str("conn", string(sess.ID())).Msg("handler panic")
			ctl.sendError(c, "internal error")
		}
	}()

	var env struct {
		Type core.EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case core.EvJoinRoom:
		ctl.handleJoin(ctx, sess, c, data)
	case core.EvLeaveRoom:
		ctl.handleLeave(ctx, sess, c, data)
	case core.EvSendMessage:
		ctl.handleSendMessage(ctx, sess, c, data)
	case core.EvSignalOffer:
		ctl.handleRelay(sess, c, core.SignalOffer, data)
	case core.EvSignalAnswer:
		ctl.handleRelay(sess, c, core.SignalAnswer, data)
	case core.EvSignalCandidate:
		ctl.handleRelay(sess, c, core.SignalCandidate, data)
	case core.EvPing:
		ctl.handlePing(c)
	case core.EvWhoAmI:
		ctl.handleWhoAmI(sess, c)
	default:
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("unknown signal")
		ctl.sendError(c, "unknown event")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, reason string) {
	ctl.sendJSON(c, core.ErrorEvent{Type: core.EvError, Reason: reason})
}

// reasonFor maps an error to what the client is told. Store and internal
// failures stay generic.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrNotAMember),
		errors.Is(err, domain.ErrRateLimited):
		return err.Error()
	case errors.Is(err, orch.ErrSessionClosed):
		return "connection closed"
	}
	return "internal error"
}
