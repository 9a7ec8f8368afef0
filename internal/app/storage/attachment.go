package storage

import (
	"path/filepath"
	"strings"
	"time"

	"chatflow/internal/app/chat"
	"chatflow/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB is the maximum allowed file size in megabytes.
	MaxAttachmentSizeMB = 5

	// MaxAttachmentSize is the maximum allowed file size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	// PresignedURLDuration is the fixed duration for which a presigned URL is valid (5 minutes).
	PresignedURLDuration = 5 * time.Minute
)

// mimeTypesByKind defines the permitted MIME types for each uploadable message kind.
var mimeTypesByKind = map[chat.Kind]map[string]struct{}{
	chat.KindImage: {
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	},
	chat.KindGif: {
		"image/gif": {},
	},
	chat.KindVoice: {
		"audio/webm": {},
		"audio/mpeg": {},
		"audio/ogg":  {},
		"audio/mp4":  {},
	},
	chat.KindFile: {
		"application/pdf":  {},
		"application/zip":  {},
		"text/plain":       {},
		"text/csv":         {},
		"application/json": {},
	},
}

// extToMIME maps file extensions to their corresponding MIME types.
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".webm": "audio/webm",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".json": "application/json",
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAttachmentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateFileType checks that the file name and MIME type are allowed for the
// given message kind, and that the extension agrees with the declared MIME type.
func ValidateFileType(kind chat.Kind, fileName string, mimeType string) *errs.CustomError {
	allowed, ok := mimeTypesByKind[kind]
	if !ok {
		return errs.NewError(errs.ErrMessageKindInvalid)
	}

	lowerMimeType := strings.ToLower(mimeType)
	if _, ok := allowed[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	expectedMIME, ok := extToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}
