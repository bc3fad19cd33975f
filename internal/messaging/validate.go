package messaging

import (
	"fmt"

	"ClawdCity-Messaging/internal/core/window"
)

// Descriptor is a validated, immutable channel configuration.
type Descriptor struct {
	role    Role
	domain  string
	strict  bool
	handler Handler
}

func (d *Descriptor) Role() Role       { return d.role }
func (d *Descriptor) Domain() string   { return d.domain }
func (d *Descriptor) Strict() bool     { return d.strict }
func (d *Descriptor) Handler() Handler { return d.handler }

// accepts reports whether an inbound origin passes the strict-mode check.
func (d *Descriptor) accepts(origin string) bool {
	return !d.strict || origin == d.domain
}

// Validate checks o against the kind of element it will be bound to. Rules
// are applied in order and the first failure is returned:
//
//  1. sending roles and strict mode need a domain, and a domain must be an
//     origin ("*" only when no strict receiver compares against it)
//  2. sending roles need a frame element
//  3. receive-only roles need a container element
//  4. receiving roles need a handler of the shape the role calls
//
// Validate has no side effects.
func Validate(o Options, kind window.ElementKind) (*Descriptor, error) {
	if !o.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(o.Role))
	}
	if (o.Role.Sends() || o.Strict) && o.Domain == "" {
		return nil, fmt.Errorf("%w: role %s, strict %t", ErrMissingDomain, o.Role, o.Strict)
	}
	domain, err := canonicalDomain(o)
	if err != nil {
		return nil, err
	}
	if want := o.Role.RequiredKind(); kind != want {
		return nil, fmt.Errorf("%w: role %s must be bound to a %s element, got %s",
			ErrWrongEndpointKind, o.Role, want, kind)
	}
	if o.Role.Receives() && !handlerMatches(o.Role, o.Handler) {
		want := "ReceiveFunc"
		if o.Role.Replies() {
			want = "ReplyFunc"
		}
		return nil, fmt.Errorf("%w: role %s needs a %s", ErrMissingHandler, o.Role, want)
	}
	return &Descriptor{
		role:    o.Role,
		domain:  domain,
		strict:  o.Strict,
		handler: o.Handler,
	}, nil
}

// canonicalDomain normalizes the domain the way the transport normalizes
// origins, so strict comparison and send targeting agree.
func canonicalDomain(o Options) (string, error) {
	if o.Domain == "" {
		return "", nil
	}
	if o.Domain == window.AnyOrigin {
		if o.Strict && o.Role.Receives() {
			return "", fmt.Errorf("%w: %q never matches a strict receiver", ErrInvalidDomain, o.Domain)
		}
		return window.AnyOrigin, nil
	}
	origin, err := window.ParseOrigin(o.Domain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}
	return origin, nil
}
