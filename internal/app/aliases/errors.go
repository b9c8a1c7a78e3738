package aliases

// Error codes for alias registration failures.
const (
	ErrCodeAliasConflict = "ALIAS_CONFLICT"
	ErrCodeReservedWord  = "RESERVED_WORD"
)

// Error is an application-layer error with a machine-readable code and a
// user-presentable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
