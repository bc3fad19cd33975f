package messaging

import "ClawdCity-Messaging/internal/core/window"

// Reply answers one inbound message: it posts back to that message's source
// targeted at that message's origin. There is no acknowledgement, timeout or
// retry. Calling it more than once sends more than one answer.
type Reply func(message any) error

func newReply(source window.Target, origin string) Reply {
	return func(message any) error {
		if source == nil {
			return window.ErrNoTarget
		}
		if err := source.PostMessage(message, origin); err != nil {
			return err
		}
		outboundMessages.WithLabelValues("reply").Inc()
		return nil
	}
}
