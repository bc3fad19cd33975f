package window

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// AnyOrigin as a target origin delivers regardless of the receiver's origin.
	AnyOrigin = "*"
	// SameOrigin as a target origin means the sender's own origin.
	SameOrigin = "/"
)

var ErrInvalidOrigin = errors.New("window: invalid origin")

// ParseOrigin normalizes raw to scheme://host[:port]. Paths, queries and
// fragments are rejected rather than silently stripped.
func ParseOrigin(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidOrigin)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidOrigin, raw, err)
	}
	if u.Scheme == "" || u.Host == "" || u.Opaque != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, raw)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", fmt.Errorf("%w: %q carries more than scheme and host", ErrInvalidOrigin, raw)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

// resolveTargetOrigin turns a caller-supplied target origin into the value
// carried on the wire.
func resolveTargetOrigin(target, self string) (string, error) {
	switch strings.TrimSpace(target) {
	case AnyOrigin:
		return AnyOrigin, nil
	case SameOrigin:
		return self, nil
	}
	return ParseOrigin(target)
}
