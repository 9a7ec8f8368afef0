package handler

import (
	"net/http"
	"strconv"

	"chatflow/internal/pkg/auth/jwt"
	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/logx"
	"chatflow/internal/pkg/randx"
	"chatflow/internal/pkg/resp"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// HandleMessageHistory serves paginated room history, oldest first within the
// page. Reconnecting clients use it to backfill messages missed while offline.
func HandleMessageHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		query := r.URL.Query()
		roomID := query.Get("roomId")
		if !randx.IsValidRoomID(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		page, _ := strconv.Atoi(query.Get("page"))
		if page < 1 {
			page = 1
		}

		limit, _ := strconv.Atoi(query.Get("limit"))
		if limit < 1 {
			limit = defaultHistoryLimit
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}

		messages, hasMore, err := deps.Store.History(r.Context(), roomID, page, limit)
		if err != nil {
			logx.Error(err, "Failed to load message history", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{
			"messages": messages,
			"hasMore":  hasMore,
			"page":     page,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleListChats returns the caller's conversation list: every room the
// identity has sent into, with its last-message summary, most recent first.
func HandleListChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		chats, err := deps.Store.Chats(r.Context(), payload.Identity)
		if err != nil {
			logx.Error(err, "Failed to load conversation list", "identity", payload.Identity)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"chats": chats})
	}
}
