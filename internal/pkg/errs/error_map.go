/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Message Business Logic Errors
	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Chat room not found.", Status: http.StatusNotFound},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageKindInvalid:    {Code: ErrMessageKindInvalid, Message: "Unsupported message type."},
	ErrNotMessageOwner:       {Code: ErrNotMessageOwner, Message: "You can only change your own messages.", Status: http.StatusForbidden},
	ErrMessageNotFound:       {Code: ErrMessageNotFound, Message: "Message not found.", Status: http.StatusNotFound},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Message: "Unsupported file type."},

	// 3xxx: Identity and Session Errors
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrFriendRequestInvalid: {Code: ErrFriendRequestInvalid, Message: "Unable to send friend request."},

	// 5xxx: Internal System Errors
	ErrUnknown:              {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrPersistenceDegraded:  {Code: ErrPersistenceDegraded, Message: "Message sent but not yet saved."},
	ErrTextGenerationFailed: {Code: ErrTextGenerationFailed, Message: "Assistant is unavailable. Please try again later.", Status: http.StatusBadGateway},
	ErrFileStorageFailed:    {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again."},
}
