package messaging

import (
	"fmt"
	"strings"

	"ClawdCity-Messaging/internal/core/window"
)

// Role is the fixed capability set of a channel.
type Role string

const (
	SendOnly        Role = "send_only"
	SendAndReceive  Role = "send_and_receive"
	ReceiveOnly     Role = "receive_only"
	ReceiveAndReply Role = "receive_and_reply"
)

// ParseRole accepts the wire names of the four roles.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case SendOnly, SendAndReceive, ReceiveOnly, ReceiveAndReply:
		return true
	}
	return false
}

// Sends reports whether the role may originate messages.
func (r Role) Sends() bool { return r == SendOnly || r == SendAndReceive }

// Receives reports whether the role registers for inbound messages.
func (r Role) Receives() bool {
	return r == SendAndReceive || r == ReceiveOnly || r == ReceiveAndReply
}

// Replies reports whether handlers of the role get a Reply.
func (r Role) Replies() bool { return r == ReceiveAndReply }

// RequiredKind is the element kind a channel of this role must be bound to.
// Senders live on the frame they talk to; pure receivers on the page itself.
func (r Role) RequiredKind() window.ElementKind {
	if r.Sends() {
		return window.KindFrame
	}
	return window.KindContainer
}

func (r Role) String() string { return string(r) }
