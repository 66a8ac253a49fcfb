package websocket

import (
	"context"
	"errors"
	"time"

	"dm-relay/internal/config"
	"dm-relay/internal/errs"
	"dm-relay/internal/models"
	"dm-relay/internal/presence"
	"dm-relay/internal/session"
	"dm-relay/pkg/logger"

	"github.com/gorilla/websocket"
)

type Client struct {
	id   presence.ConnectionID
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	cfg  config.WebSocketConfig
}

func NewClient(id presence.ConnectionID, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, cfg.SendBuffer),
		cfg:  cfg,
	}
}

// enqueue must be called with the hub lock held so send is not closed
// concurrently.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ReadPump handles inbound frames one at a time until the connection fails.
// It then leaves the hub before ending the session, so the presence
// broadcast only reaches the remaining clients.
func (c *Client) ReadPump(ctx context.Context, sess *session.Session) {
	l := logger.Ctx(ctx).With().Str(logger.FieldConnID, string(c.id)).Logger()
	ctx = logger.WithLogger(ctx, l)

	defer func() {
		c.hub.Unregister(c)
		sess.Disconnect()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				l.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		env, err := models.DecodeEnvelope(frame)
		if err != nil {
			l.Debug().Err(sess.InvalidFrame(ctx, err)).Msg("frame not handled")
			continue
		}

		if err := sess.HandleEvent(ctx, env); err != nil {
			lvl := l.Debug()
			if errors.Is(err, errs.ErrPersistence) {
				lvl = l.Warn()
			}
			lvl.Err(err).Str(logger.FieldEvent, string(env.Event)).Msg("event not handled")
		}
	}
}

// WritePump writes queued frames in order and keeps the connection alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				l := logger.L()
				l.Debug().Err(err).Str(logger.FieldConnID, string(c.id)).Msg("websocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
