package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidChangeID     = errors.New("invalid change id")
	ErrInvalidEntityID     = errors.New("invalid entity id")
	ErrUnknownEntityType   = errors.New("unknown entity type")
	ErrInvalidOp           = errors.New("invalid change operation")
	ErrEmptyPayload        = errors.New("payload is required for upsert")
	ErrInvalidPayload      = errors.New("payload is not a JSON object")
	ErrZeroClientTimestamp = errors.New("client timestamp is required")
	ErrNegativeBaseVersion = errors.New("base sync version cannot be negative")
	ErrEmptyChanges        = errors.New("changes list cannot be empty")
	ErrNegativeLimit       = errors.New("limit cannot be negative")
)
