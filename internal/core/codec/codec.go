// Package codec marshals window envelopes for the wire.
package codec

import (
	"errors"
	"fmt"
)

var ErrUnknownContentType = errors.New("codec: unknown content type")

// Codec marshals typed messages. Implementations must be deterministic so
// two windows exchanging the same value see the same bytes.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Registry maps content types to codecs.
type Registry struct{ byType map[string]Codec }

// NewRegistry returns a registry preloaded with JSON and CBOR.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Codec)}
	r.Register(JSON())
	r.Register(CBOR())
	return r
}

// Register adds or replaces a codec.
func (r *Registry) Register(c Codec) { r.byType[c.ContentType()] = c }

// Get returns a codec by content type.
func (r *Registry) Get(contentType string) (Codec, error) {
	c, ok := r.byType[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContentType, contentType)
	}
	return c, nil
}
