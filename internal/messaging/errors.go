package messaging

import "errors"

// Configuration errors. Configure returns them wrapped; match with errors.Is.
var (
	ErrMissingDomain     = errors.New("messaging: domain required when sending or in strict mode")
	ErrWrongEndpointKind = errors.New("messaging: element kind does not match role")
	ErrMissingHandler    = errors.New("messaging: receive handler required")
	ErrUnknownRole       = errors.New("messaging: unknown role")
	ErrInvalidDomain     = errors.New("messaging: domain is not an origin")
)

// Protocol errors.
var (
	ErrNotASender     = errors.New("messaging: channel is a receiver not a sender")
	ErrUnknownElement = errors.New("messaging: no channel configured on element")
)

// IsConfigError reports whether err was produced while validating options.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingDomain) ||
		errors.Is(err, ErrWrongEndpointKind) ||
		errors.Is(err, ErrMissingHandler) ||
		errors.Is(err, ErrUnknownRole) ||
		errors.Is(err, ErrInvalidDomain)
}

func configErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingDomain):
		return "missing_domain"
	case errors.Is(err, ErrWrongEndpointKind):
		return "wrong_endpoint_kind"
	case errors.Is(err, ErrMissingHandler):
		return "missing_handler"
	case errors.Is(err, ErrUnknownRole):
		return "unknown_role"
	case errors.Is(err, ErrInvalidDomain):
		return "invalid_domain"
	default:
		return "other"
	}
}
