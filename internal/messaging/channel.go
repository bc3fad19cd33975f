package messaging

import (
	"fmt"

	"ClawdCity-Messaging/internal/core/window"
)

// contentWindowed is the part of a frame element a sender needs.
type contentWindowed interface {
	ContentWindow() window.Target
}

// Channel is one configured element. It holds nothing beyond its
// descriptor and the element it is bound to.
type Channel struct {
	desc    *Descriptor
	element window.Element
	target  window.Target
}

// Open binds a validated descriptor to element. Receiving roles register
// with d; that is the only side effect.
func Open(desc *Descriptor, element window.Element, d *Dispatcher) (*Channel, error) {
	c := &Channel{desc: desc, element: element}
	if desc.Role().Sends() {
		f, ok := element.(contentWindowed)
		if !ok || f.ContentWindow() == nil {
			return nil, fmt.Errorf("%w: element %q has no content window", ErrWrongEndpointKind, element.ID())
		}
		c.target = f.ContentWindow()
	}
	if desc.Role().Receives() {
		d.Register(desc)
	}
	channelsConfigured.WithLabelValues(desc.Role().String()).Inc()
	return c, nil
}

func (c *Channel) Descriptor() *Descriptor { return c.desc }
func (c *Channel) Element() window.Element { return c.element }
func (c *Channel) Role() Role              { return c.desc.Role() }

// Send posts message to the bound frame, targeted at the channel's domain.
// The frame's transport refuses delivery when its origin differs. Send
// does not wait for a reply; replies arrive through the inbound path.
func (c *Channel) Send(message any) error {
	if !c.desc.Role().Sends() {
		return fmt.Errorf("%w: element %q has role %s", ErrNotASender, c.element.ID(), c.desc.Role())
	}
	if err := c.target.PostMessage(message, c.desc.Domain()); err != nil {
		return fmt.Errorf("messaging: send on %q: %w", c.element.ID(), err)
	}
	outboundMessages.WithLabelValues("send").Inc()
	return nil
}
