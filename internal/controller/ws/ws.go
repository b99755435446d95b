// Package ws serves the realtime delivery channel over websockets.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/middleware"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/realtime"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	_defaultSendBuffer   = 64
	_defaultWriteTimeout = 10 * time.Second
	_defaultPingInterval = 30 * time.Second

	_localsActor = "ws_actor"

	actionJoin  = "join"
	actionLeave = "leave"
)

type Config struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// command is what a client sends. Join takes either the canonical
// conversationKey or the peer's id.
type command struct {
	Action          string `json:"action"`
	ConversationKey string `json:"conversationKey,omitempty"`
	PeerID          string `json:"peerId,omitempty"`
}

type reply struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type Controller struct {
	hub    *realtime.Hub
	cfg    Config
	logger logger.Interface
}

func NewRoutes(app fiber.Router, hub *realtime.Hub, auth *middleware.Auth, cfg Config, l logger.Interface) {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = _defaultSendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = _defaultWriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = _defaultPingInterval
	}

	c := &Controller{hub: hub, cfg: cfg, logger: l}

	app.Get("/ws", c.upgrade, auth.Handler(), c.bindActor, websocket.New(c.serve))
}

func (c *Controller) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	return ctx.Next()
}

func (c *Controller) bindActor(ctx *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		return ctx.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	ctx.Locals(_localsActor, actor)

	return ctx.Next()
}

func (c *Controller) serve(conn *websocket.Conn) {
	actor, ok := conn.Locals(_localsActor).(entity.Actor)
	if !ok {
		_ = conn.Close()

		return
	}

	handle := newConnHandle(c.cfg.SendBuffer)
	p := c.hub.Connect(actor.ID, handle)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(conn, handle)
	}()

	c.readLoop(conn, p, handle)

	_ = handle.Close()
	c.hub.Disconnect(p)
	<-writerDone
}

// readLoop handles join and leave commands until the peer goes away or the
// handle is closed by a newer connection.
func (c *Controller) readLoop(conn *websocket.Conn, p *realtime.Participant, handle *connHandle) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug(err, "ws - readLoop - conn.ReadMessage")
			}

			return
		}

		select {
		case <-handle.Done():
			return
		default:
		}

		var cmd command
		if err = json.Unmarshal(msg, &cmd); err != nil {
			c.replyError(handle, "malformed command")

			continue
		}

		switch cmd.Action {
		case actionJoin:
			key, err := joinKey(p.UserID(), cmd)
			if err == nil {
				err = c.hub.Join(p, key)
			}
			if err != nil {
				c.replyError(handle, err.Error())

				continue
			}
			c.reply(handle, reply{Event: "joined", Data: fiber.Map{"conversationKey": key}})
		case actionLeave:
			c.hub.Leave(p)
			c.reply(handle, reply{Event: "left"})
		default:
			c.replyError(handle, fmt.Sprintf("unknown action %q", cmd.Action))
		}
	}
}

func (c *Controller) writeLoop(conn *websocket.Conn, handle *connHandle) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-handle.send:
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug(err, "ws - writeLoop - conn.WriteMessage")
				_ = handle.Close()
				_ = conn.Close()

				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = handle.Close()
				_ = conn.Close()

				return
			}
		case <-handle.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()

			return
		}
	}
}

func (c *Controller) reply(handle *connHandle, r reply) {
	b, err := json.Marshal(r)
	if err != nil {
		c.logger.Error(err, "ws - reply - json.Marshal")

		return
	}
	if err = handle.Send(b); err != nil {
		c.logger.Debug(err, "ws - reply - handle.Send")
	}
}

func (c *Controller) replyError(handle *connHandle, msg string) {
	c.reply(handle, reply{Event: "error", Data: fiber.Map{"error": msg}})
}

func joinKey(userID string, cmd command) (entity.ConversationKey, error) {
	switch {
	case cmd.ConversationKey != "":
		key, err := entity.ParseConversationKey(cmd.ConversationKey)
		if err != nil {
			return entity.ConversationKey{}, fmt.Errorf("ws - joinKey - entity.ParseConversationKey: %w", err)
		}

		return key, nil
	case cmd.PeerID != "":
		if cmd.PeerID == userID {
			return entity.ConversationKey{}, errors.New("cannot join a conversation with yourself")
		}

		return entity.NewConversationKey(userID, cmd.PeerID), nil
	default:
		return entity.ConversationKey{}, errors.New("conversationKey or peerId is required")
	}
}
