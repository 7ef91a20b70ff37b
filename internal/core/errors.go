package core

// Error codes for domain errors surfaced to the requesting socket.
const (
	ErrCodeRoomNotFound  = "room_not_found"
	ErrCodeRoomExists    = "room_exists"
	ErrCodeBadRoomName   = "bad_room_name"
	ErrCodeAlreadyJoined = "already_joined"
	ErrCodeNotInRoom     = "not_in_room"
	ErrCodeWrongPassword = "wrong_password"
	ErrCodeStaleAttempt  = "stale_attempt"
	ErrCodeIdentityInUse = "identity_in_use"
	ErrCodeNotVerified   = "not_verified"
	ErrCodeBadRequest    = "bad_request"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}
