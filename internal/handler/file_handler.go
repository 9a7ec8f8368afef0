package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"chatflow/internal/app/chat"
	"chatflow/internal/app/storage"
	"chatflow/internal/pkg/auth/jwt"
	"chatflow/internal/pkg/errs"
	"chatflow/internal/pkg/gate"
	"chatflow/internal/pkg/randx"
	"chatflow/internal/pkg/req"
	"chatflow/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating an upload URL.
type PresignUploadInput struct {
	RoomID   string `json:"roomId"`
	Kind     string `json:"kind"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignUploadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for an attachment upload, scoped to a specific room.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if !deps.Gate.Admit(payload.Identity, gate.ClassUpload).Allowed {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !randx.IsValidRoomID(input.RoomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := storage.ValidateFileSize(input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateFileType(chat.Kind(input.Kind), input.FileName, input.MimeType); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(input.FileName))
		fileKey := fmt.Sprintf("%s/%s%s", input.RoomID, uuid.New().String(), fileExt)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandlePresignDownloadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for downloading an attachment by its key.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		fileKey := r.URL.Query().Get("k")
		roomID, _, found := strings.Cut(fileKey, "/")
		if !found || !randx.IsValidRoomID(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.StorageService.PresignDownload(
			r.Context(),
			fileKey,
			storage.PresignedURLDuration,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
