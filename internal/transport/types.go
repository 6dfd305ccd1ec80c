package transport

import "context"

// ChatTarget addresses an outbound chat message.
//
// Recipient is the contact identifier stored on the booking record. For the
// Telegram adapter it is a numeric chat id in string form; other adapters may
// interpret it differently (e.g. a phone number).
type ChatTarget struct {
	Recipient string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// MessageRef identifies a sent message on the chat platform.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Sender is the single outbound capability the delivery queue requires from a
// chat transport. Implementations must not block indefinitely; callers bound
// each send with a context deadline.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
