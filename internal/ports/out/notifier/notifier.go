package notifier

import "context"

// Field is one short title/value pair inside an attachment.
type Field struct {
	Title string
	Value string
	Short bool
}

// Attachment is a block of secondary content under a message.
type Attachment struct {
	Title  string
	Text   string
	Fields []Field
}

// Message is the structured payload posted to a log channel. The shape
// mirrors the chat platform's message contract.
type Message struct {
	Text        string
	Attachments []Attachment
}

// Target addresses one delivery: a channel name (without "#") and an
// optional per-organization credential override.
type Target struct {
	Channel string
	Token   string
}

// Notifier posts messages to the organization's log channel. Delivery
// failures are non-fatal to callers: ledger changes that already committed
// are never rolled back because a notification failed.
type Notifier interface {
	Send(ctx context.Context, t Target, msg Message) error
}
