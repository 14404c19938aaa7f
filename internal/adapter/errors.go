package adapter

import "errors"

var (
	ErrBadRequest        = errors.New("bad request")
	ErrUnauthorized      = errors.New("client unauthorized")
	ErrBatchTooLarge     = errors.New("push batch too large")
	ErrCheckpointUnknown = errors.New("checkpoint not recognized by server")
	ErrServerUnavailable = errors.New("server unavailable")
)
