/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting, validating
the room identifier and session token, upgrading the HTTP connection to WebSocket, and initiating
the client lifecycle.
*/
package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatflow/internal/app/chat"
	"chatflow/internal/pkg/auth/jwt"
	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/limiter"
	"chatflow/internal/pkg/logx"
	"chatflow/internal/pkg/randx"
	"chatflow/internal/pkg/resp"
)

// sessionToken extracts the bearer token from the Authorization header, falling
// back to the "token" query parameter since browser WebSocket clients cannot
// set headers on the upgrade request.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		roomID := chi.URLParam(r, "roomId")
		if !randx.IsValidRoomID(roomID) {
			logx.Warn("WebSocket request rejected: Invalid room identifier")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		payload, err := jwt.ParseToken(sessionToken(r), deps.Config.JWTSecret)
		if err != nil || payload.Identity == "" {
			logx.Warn("WebSocket request rejected: Missing or invalid session token", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		logx.Info("Attempting to upgrade connection", "room_id", roomID, "identity", payload.Identity)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := uuid.New().String()
		client := chat.NewClient(deps.Hub, conn, connID, payload.Identity)

		go client.WritePump()

		// The connection starts with the requested room joined; further rooms
		// arrive as join-room operations over the socket.
		if customErr := deps.Hub.JoinRoom(client.Subscriber(), roomID); customErr != nil {
			deps.Hub.SendError(client.Subscriber(), customErr)
		}

		logx.Info("WebSocket connection established", "conn_id", connID, "identity", payload.Identity, "room_id", roomID)

		client.ReadPump()
	}
}
