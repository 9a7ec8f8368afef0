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

// AIChatInput defines the JSON input structure for the assistant chat endpoint.
type AIChatInput struct {
	Message string   `json:"message"`
	Context []string `json:"context,omitempty"`
}

// TranslateInput defines the JSON input structure for the translation endpoint.
type TranslateInput struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

// HandleAIChat creates an HTTP HandlerFunc that forwards a prompt, with
// optional recent conversation lines, to the text-generation service.
func HandleAIChat(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if !deps.Gate.Admit(payload.Identity, gate.ClassAIChat).Allowed {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		var input AIChatInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if strings.TrimSpace(input.Message) == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if !deps.AI.Moderate(r.Context(), input.Message) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		reply, err := deps.AI.Complete(r.Context(), input.Message, input.Context)
		if err != nil {
			logx.Error(err, "Assistant completion failed", "identity", payload.Identity)
			resp.RespondError(w, r, errs.NewError(errs.ErrTextGenerationFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"reply": reply})
	}
}

// HandleTranslate creates an HTTP HandlerFunc that translates a message into
// the requested language.
func HandleTranslate(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if !deps.Gate.Admit(payload.Identity, gate.ClassTranslate).Allowed {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		var input TranslateInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if strings.TrimSpace(input.Text) == "" || strings.TrimSpace(input.TargetLanguage) == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		translated, err := deps.AI.Translate(r.Context(), input.Text, input.TargetLanguage)
		if err != nil {
			logx.Error(err, "Translation failed", "identity", payload.Identity)
			resp.RespondError(w, r, errs.NewError(errs.ErrTextGenerationFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"translated": translated})
	}
}
