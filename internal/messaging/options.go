package messaging

import (
	"fmt"
	"strings"
)

// Options are the recognized configuration keys of a channel.
type Options struct {
	// Strict requires every inbound origin to equal Domain exactly.
	Strict bool
	// Domain is the remote origin. Required for sending roles; for
	// receiving roles it only matters when Strict is set.
	Domain string
	Role   Role
	// Handler is nil by default, which counts as no handler.
	Handler Handler
}

// DefaultOptions: strict, no domain, send_and_receive, no handler.
func DefaultOptions() Options {
	return Options{
		Strict: true,
		Domain: "",
		Role:   SendAndReceive,
	}
}

// Option adjusts Options on top of DefaultOptions.
type Option func(*Options)

func WithStrict(strict bool) Option { return func(o *Options) { o.Strict = strict } }
func WithDomain(domain string) Option {
	return func(o *Options) { o.Domain = strings.TrimSpace(domain) }
}
func WithRole(role Role) Option { return func(o *Options) { o.Role = role } }

// OnReceive installs a plain receive handler.
func OnReceive(fn ReceiveFunc) Option {
	return func(o *Options) { o.Handler = fn }
}

// OnReceiveReply installs a replying receive handler.
func OnReceiveReply(fn ReplyFunc) Option {
	return func(o *Options) { o.Handler = fn }
}

// BuildOptions applies opts to DefaultOptions.
func BuildOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Settings is the declarative form of Options used in config files and
// request bodies. Handlers are always supplied in code.
type Settings struct {
	Strict *bool  `toml:"strict" json:"strict,omitempty"`
	Domain string `toml:"domain" json:"domain,omitempty"`
	Role   string `toml:"role" json:"role,omitempty"`
}

// Options converts the settings. Unset fields keep their defaults.
func (s Settings) Options() ([]Option, error) {
	var opts []Option
	if s.Strict != nil {
		opts = append(opts, WithStrict(*s.Strict))
	}
	if s.Domain != "" {
		opts = append(opts, WithDomain(s.Domain))
	}
	if s.Role != "" {
		role, err := ParseRole(s.Role)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		opts = append(opts, WithRole(role))
	}
	return opts, nil
}
