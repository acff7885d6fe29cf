package types

type ErrorCode string

const (
	CodeRoomNotFound        ErrorCode = "ROOM_NOT_FOUND"
	CodeRoomFull            ErrorCode = "ROOM_FULL"
	CodeOutOfTurn           ErrorCode = "OUT_OF_TURN"
	CodeNoPendingMove       ErrorCode = "NO_PENDING_MOVE"
	CodeColumnFull          ErrorCode = "COLUMN_FULL"
	CodeGameAlreadyDecided  ErrorCode = "GAME_ALREADY_DECIDED"
	CodeStoreFailure        ErrorCode = "STORE_FAILURE"
	CodeBadMessage          ErrorCode = "BAD_MESSAGE"
	CodeIdentityRequired    ErrorCode = "IDENTITY_REQUIRED"
	CodePracticeUnavailable ErrorCode = "PRACTICE_UNAVAILABLE"
)

// Fatal codes end the client session; the server closes the socket after
// sending them.
func (c ErrorCode) Fatal() bool {
	return c == CodeRoomNotFound || c == CodeRoomFull
}
