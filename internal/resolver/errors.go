package resolver

import "errors"

// ErrInvalidTemplate is returned when an endpoint URL template lacks its
// placeholder.
var ErrInvalidTemplate = errors.New("invalid endpoint template")
