package handler

import (
	"net/http"
	"strings"

	"chatflow/internal/pkg/auth/jwt"
	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/gate"
	"chatflow/internal/pkg/logx"
	"chatflow/internal/pkg/req"
	"chatflow/internal/pkg/resp"
)

// AddFriendInput defines the JSON input structure for sending a friend request.
type AddFriendInput struct {
	Target string `json:"target"`
}

// HandleAddFriend records a friend request from the authenticated identity to
// the target identity. Repeated requests to the same target are absorbed.
func HandleAddFriend(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if !deps.Gate.Admit(payload.Identity, gate.ClassFriendRequest).Allowed {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		var input AddFriendInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		target := strings.TrimSpace(input.Target)
		if target == "" || target == payload.Identity {
			resp.RespondError(w, r, errs.NewError(errs.ErrFriendRequestInvalid))
			return
		}

		if err := deps.Store.AddFriendRequest(r.Context(), payload.Identity, target); err != nil {
			logx.Error(err, "Failed to record friend request", "requester", payload.Identity)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"target": target})
	}
}
