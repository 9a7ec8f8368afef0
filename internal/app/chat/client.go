/*
Package chat contains the real-time messaging coordination core.

This file defines the Client struct, representing an active WebSocket
connection. One goroutine reads inbound operations (ReadPump), one writes
outbound events (WritePump); teardown always runs the hub's Disconnect so no
room keeps a dangling subscription.
*/
package chat

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/logx"
)

const (
	// writeWait is the timeout for a single write to the WebSocket connection.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a Pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod is the heartbeat interval; it must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxOperationBytes caps the size of one inbound operation frame.
	maxOperationBytes = 8192
)

// OpType tags an inbound operation carried over the connection.
type OpType string

const (
	OpJoinRoom      OpType = "join-room"
	OpLeaveRoom     OpType = "leave-room"
	OpSendMessage   OpType = "send-message"
	OpEditMessage   OpType = "edit-message"
	OpDeleteMessage OpType = "delete-message"
	OpReact         OpType = "react"
	OpTyping        OpType = "typing"
	OpMarkRead      OpType = "mark-read"
)

// Operation is the inbound frame envelope.
type Operation struct {
	Type    OpType          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomOp and LeaveRoomOp address a room.
type JoinRoomOp struct {
	RoomID string `json:"roomId"`
}

// SendMessageOp carries a new message. CorrelationToken is client-generated
// and echoed back on the resulting message-created event.
type SendMessageOp struct {
	RoomID           string `json:"roomId"`
	Content          string `json:"content"`
	Kind             Kind   `json:"kind,omitempty"`
	ReplyTo          string `json:"replyTo,omitempty"`
	CorrelationToken string `json:"correlationToken"`
}

// EditMessageOp replaces a message's content.
type EditMessageOp struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// DeleteMessageOp tombstones a message.
type DeleteMessageOp struct {
	MessageID string `json:"messageId"`
}

// ReactOp toggles an emoji reaction.
type ReactOp struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// TypingOp flips the ephemeral typing indicator.
type TypingOp struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// MarkReadOp acknowledges receipt of messages, advancing their delivery status.
type MarkReadOp struct {
	RoomID     string         `json:"roomId"`
	MessageIDs []string       `json:"messageIds"`
	Status     DeliveryStatus `json:"status"`
}

// Client represents an active WebSocket connection and its verified identity.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	sub  *Subscriber

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection. The identity comes
// from the external authenticator; the core never issues one itself.
func NewClient(hub *Hub, conn *websocket.Conn, connID, identity string) *Client {
	clientLogger := logx.Logger().With().
		Str("conn_id", connID).
		Str("identity", identity).
		Logger()

	return &Client{
		hub:    hub,
		conn:   conn,
		sub:    NewSubscriber(connID, identity),
		logger: clientLogger,
	}
}

// Subscriber returns the connection's delivery endpoint.
func (c *Client) Subscriber() *Subscriber {
	return c.sub
}

// ReadPump reads inbound operations until the connection drops, then runs
// teardown. Teardown executes on every exit path, including abnormal closes.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxOperationBytes)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			break
		}

		c.dispatch(frame)
	}
}

// cleanupOnDisconnect purges the connection from every room and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Connection cleanup starting.")

	c.hub.Disconnect(c.sub)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// dispatch decodes one inbound frame and routes it to the hub. Any operation
// error is surfaced back to this connection only.
func (c *Client) dispatch(frame []byte) {
	var op Operation
	if err := json.Unmarshal(frame, &op); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.hub.SendError(c.sub, errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	var customErr *errs.CustomError

	switch op.Type {
	case OpJoinRoom:
		var p JoinRoomOp
		if customErr = c.bind(op.Payload, &p); customErr == nil {
			customErr = c.hub.JoinRoom(c.sub, p.RoomID)
		}

	case OpLeaveRoom:
		var p JoinRoomOp
		if customErr = c.bind(op.Payload, &p); customErr == nil {
			customErr = c.hub.LeaveRoom(c.sub, p.RoomID)
		}

	case OpSendMessage:
		var p SendMessageOp
		if customErr = c.bind(op.Payload, &p); customErr == nil {
			customErr = c.hub.SendMessage(c.sub, p.RoomID, p.Content, p.Kind, p.ReplyTo, p.CorrelationToken)
		}

	case OpEditMessage:
		var p EditMessageOp
		if customErr = c.bind(op.Payload, &p); customErr == nil {
			customErr = c.hub.EditMessage(c.sub, p.MessageID, p.Content)
		}

	case OpDeleteMessage:
		var p DeleteMessageOp
		if customErr = c.bind(op.Payload, &p); customErr == nil {
			customErr = c.hub.DeleteMessage(c.sub, p.MessageID)
		}

	case OpReact:
		var p ReactOp
		if customErr = c.bind(op.Payload, &p); customErr == nil {
			customErr = c.hub.React(c.sub, p.MessageID, p.Emoji)
		}

	case OpTyping:
		var p TypingOp
		if customErr = c.bind(op.Payload, &p); customErr == nil {
			customErr = c.hub.Typing(c.sub, p.RoomID, p.IsTyping)
		}

	case OpMarkRead:
		var p MarkReadOp
		if customErr = c.bind(op.Payload, &p); customErr == nil {
			customErr = c.hub.MarkRead(c.sub, p.RoomID, p.MessageIDs, p.Status)
		}

	default:
		c.logger.Warn().Str("op_type", string(op.Type)).Msg("Client sent unsupported operation type")
		customErr = errs.NewError(errs.ErrInvalidParams)
	}

	if customErr != nil {
		c.hub.SendError(c.sub, customErr)
	}
}

// bind unmarshals an operation payload into dst.
func (c *Client) bind(payload json.RawMessage, dst any) *errs.CustomError {
	if len(payload) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid operation payload")
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	return nil
}

// WritePump drains the subscriber's outbound queue onto the WebSocket and
// keeps the heartbeat alive. It exits when the queue closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.sub.Outbound():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error().Err(err).Msg("Error writing event frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
