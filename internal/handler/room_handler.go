package handler

import (
	"errors"
	"net/http"

	"chatflow/internal/app/db"
	"chatflow/internal/pkg/auth/jwt"
	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/logx"
	"chatflow/internal/pkg/randx"
	"chatflow/internal/pkg/resp"
)

// roomIDMintAttempts bounds retries when a minted identifier collides.
const roomIDMintAttempts = 3

// HandleCreateRoom mints a fresh room identifier and registers it. Membership
// itself is implicit: the room exists in the registry once someone connects
// and joins it.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		for attempt := 0; attempt < roomIDMintAttempts; attempt++ {
			roomID, err := randx.RoomID()
			if err != nil {
				logx.Error(err, "Failed to mint room identifier")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			err = deps.Store.CreateRoom(r.Context(), roomID)
			if errors.Is(err, db.ErrRoomIDTaken) {
				continue
			}
			if err != nil {
				logx.Error(err, "Failed to register room", "room_id", roomID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			logx.Info("Room created", "room_id", roomID, "identity", payload.Identity)
			resp.RespondSuccess(w, r, map[string]string{"roomId": roomID})
			return
		}

		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
	}
}
