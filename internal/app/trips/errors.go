package trips

// Error codes for settlement validation failures.
const (
	ErrCodeNoPassengers         = "MALFORMED_COMMAND"
	ErrCodeNotAMember           = "NOT_A_MEMBER"
	ErrCodeDuplicateParticipant = "DUPLICATE_PARTICIPANT"
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
