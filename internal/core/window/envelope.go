package window

import (
	"bytes"
	"errors"
	"fmt"

	"ClawdCity-Messaging/internal/core/codec"
)

var ErrMalformedFrame = errors.New("window: malformed frame")

type envelope struct {
	SourceID     string `json:"source_id" cbor:"source_id"`
	SourceOrigin string `json:"source_origin" cbor:"source_origin"`
	TargetOrigin string `json:"target_origin" cbor:"target_origin"`
	Data         any    `json:"data" cbor:"data"`
}

// encodeFrame writes "<content-type>\n<body>" so the receiver decodes with
// the sender's codec.
func encodeFrame(c codec.Codec, env envelope) ([]byte, error) {
	body, err := c.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("window: encode envelope: %w", err)
	}
	ct := c.ContentType()
	out := make([]byte, 0, len(ct)+1+len(body))
	out = append(out, ct...)
	out = append(out, '\n')
	return append(out, body...), nil
}

func decodeFrame(reg *codec.Registry, frame []byte) (envelope, error) {
	i := bytes.IndexByte(frame, '\n')
	if i <= 0 {
		return envelope{}, ErrMalformedFrame
	}
	c, err := reg.Get(string(frame[:i]))
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	if err := c.Unmarshal(frame[i+1:], &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.SourceID == "" || env.TargetOrigin == "" {
		return envelope{}, fmt.Errorf("%w: missing source or target origin", ErrMalformedFrame)
	}
	return env, nil
}
