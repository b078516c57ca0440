package relay

import "errors"

var (
	ErrHandlerStopped = errors.New("relay handler stopped")
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event")
)
