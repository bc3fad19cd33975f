package messaging

import "ClawdCity-Messaging/internal/core/window"

// Handler is the receive capability of a channel. It is either a
// ReceiveFunc or a ReplyFunc; the role decides which one is required.
type Handler interface {
	handler()
}

// ReceiveFunc handles a message on send_and_receive and receive_only
// channels.
type ReceiveFunc func(ev window.MessageEvent, data any)

// ReplyFunc handles a message on receive_and_reply channels. reply answers
// that one message.
type ReplyFunc func(ev window.MessageEvent, data any, reply Reply)

func (ReceiveFunc) handler() {}
func (ReplyFunc) handler()   {}

// handlerMatches reports whether h is present and has the shape role calls.
func handlerMatches(role Role, h Handler) bool {
	switch fn := h.(type) {
	case ReceiveFunc:
		return fn != nil && !role.Replies()
	case ReplyFunc:
		return fn != nil && role.Replies()
	default:
		return false
	}
}
