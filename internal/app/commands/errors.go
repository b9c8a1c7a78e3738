package commands

// Error codes for user-input failures. All of them resolve locally into a
// human-readable reply; none escape to the transport boundary.
const (
	ErrCodeMalformedCommand = "MALFORMED_COMMAND"
	ErrCodeUnknownSetting   = "UNKNOWN_SETTING"
	ErrCodeTypeMismatch     = "TYPE_MISMATCH"
	ErrCodeMemberNotFound   = "MEMBER_NOT_FOUND"
)

// Error is an application-layer error whose Message is ready to show the
// caller.
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
