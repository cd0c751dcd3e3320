package machine

import "errors"

// ErrMissingRequest is returned when an EventSingleRequest carries no
// request.
var ErrMissingRequest = errors.New("machine: single-request event missing request")
