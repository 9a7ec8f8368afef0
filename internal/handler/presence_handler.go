package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatflow/internal/pkg/auth/jwt"
	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/logx"
	"chatflow/internal/pkg/randx"
	"chatflow/internal/pkg/resp"
)

// HandleRoomPresence returns the identities currently online in a room,
// read from the best-effort presence tracker.
func HandleRoomPresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomId")
		if !randx.IsValidRoomID(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		online, err := deps.Presence.Online(r.Context(), roomID)
		if err != nil {
			logx.Error(err, "Failed to read presence set", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{
			"online": online,
			"count":  len(online),
		}
		resp.RespondSuccess(w, r, data)
	}
}
