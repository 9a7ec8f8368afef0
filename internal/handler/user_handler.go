package handler

import (
	"net/http"

	"chatflow/internal/app/user"
	"chatflow/internal/pkg/auth/jwt"
	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/gate"
	"chatflow/internal/pkg/logx"
	"chatflow/internal/pkg/req"
	"chatflow/internal/pkg/resp"
)

// UpdateProfileInput defines the JSON input structure for profile updates.
// The identity is always taken from the session token, never from the body.
type UpdateProfileInput struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	StatusText  string `json:"statusText"`
}

// HandleGetProfile returns the stored profile of the authenticated identity.
func HandleGetProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		profile, err := deps.Store.Profile(r.Context(), payload.Identity)
		if err != nil {
			logx.Error(err, "Failed to load profile", "identity", payload.Identity)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, profile)
	}
}

// HandleUpdateProfile writes the authenticated identity's editable profile fields.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if !deps.Gate.Admit(payload.Identity, gate.ClassProfileUpdate).Allowed {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		profile := user.Profile{
			Identity:    payload.Identity,
			DisplayName: input.DisplayName,
			AvatarURL:   input.AvatarURL,
			StatusText:  input.StatusText,
		}
		if !profile.Valid() {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Store.UpsertProfile(r.Context(), profile); err != nil {
			logx.Error(err, "Failed to update profile", "identity", payload.Identity)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, profile)
	}
}
