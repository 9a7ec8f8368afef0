/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request or operation validation failed
	// (missing room, empty content, malformed payload).
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that an identity exhausted its fixed-window
	// allowance for an operation class. The operation never reached the lifecycle engine.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Room and Message Business Logic Errors
const (
	// ErrRoomNotFound indicates the referenced room does not exist for the
	// operating connection; in-room operations require a prior join.
	ErrRoomNotFound = 2103

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageKindInvalid indicates an unknown message kind was supplied.
	ErrMessageKindInvalid = 2202

	// ErrNotMessageOwner indicates the actor attempted to mutate a message they did not send.
	ErrNotMessageOwner = 2301

	// ErrMessageNotFound indicates the referenced message is unknown or deleted.
	// A tombstoned message is treated as gone for mutation purposes.
	ErrMessageNotFound = 2302

	// ErrFileSizeTooLarge indicates that an attachment exceeded the upload size limit.
	ErrFileSizeTooLarge = 2401

	// ErrFileTypeInvalid indicates an attachment name/MIME pair outside the allowed set.
	ErrFileTypeInvalid = 2402
)

// 3xxx: Identity and Session Errors
const (
	// ErrUnauthorized indicates the request carried no verifiable identity.
	ErrUnauthorized = 3001

	// ErrFriendRequestInvalid indicates a friend request targeting an unknown or own identity.
	ErrFriendRequestInvalid = 3101
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrPersistenceDegraded indicates the durable store did not acknowledge a write.
	// The message stays visible; surfaced as a soft warning to the sender only.
	ErrPersistenceDegraded = 5001

	// ErrTextGenerationFailed indicates the external text-generation service call failed.
	ErrTextGenerationFailed = 5002

	// ErrFileStorageFailed indicates the object storage presign operation failed.
	ErrFileStorageFailed = 5003
)
