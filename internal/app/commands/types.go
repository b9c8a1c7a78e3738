package commands

import (
	"github.com/eastbay-carpool/tokenbot/internal/domain"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/notifier"
)

// Request is one inbound command with its already-authenticated caller
// identity. Text is the raw command line after the slash command itself.
type Request struct {
	Command string // the slash command, e.g. "/carpool"
	Text    string

	Org     domain.OrgID
	Caller  domain.MemberName
	Channel string
}

// Reply is the caller-visible outcome. Message, when set, is the structured
// payload; Text alone is a plain (usually usage or confirmation) reply.
type Reply struct {
	Text    string
	Message *notifier.Message
}
