package validators

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-practice-sync/models"
)

// Field name constants used to specify which fields should be validated.
// These constants are passed to Validate or internal validation methods
// to restrict validation to a subset of fields (field-level scoping).
const (
	// FieldChangeID targets the client-generated idempotency key of a change.
	FieldChangeID = "change_id"

	// FieldEntityID targets the identifier of the entity a change applies to.
	FieldEntityID = "entity_id"

	// FieldEntityType targets the entity type discriminator.
	FieldEntityType = "entity_type"

	// FieldOp targets the change operation (upsert or delete).
	FieldOp = "op"

	// FieldPayload targets the opaque payload of an upsert change.
	FieldPayload = "payload"

	// FieldClientTimestamp targets the device-local mutation timestamp.
	FieldClientTimestamp = "client_timestamp"

	// FieldBaseSyncVersion targets the last-seen sync version of a change.
	FieldBaseSyncVersion = "base_sync_version"

	// FieldChanges targets the batch carried by a push request.
	FieldChanges = "changes"

	// FieldLimit targets the optional page size of a pull request.
	FieldLimit = "limit"
)

// ChangeValidator implements [Validator] for the sync engine's inbound
// models: [models.Change], [models.PushRequest] and [models.PullRequest].
//
// Payload validation is pluggable per entity type. The constructor installs
// a shape-only default (payload must be a JSON object) for every known
// entity type; the business layer can replace any of them through
// [ChangeValidator.RegisterPayloadValidator]. An entity type with no
// registered validator is rejected outright — the engine routes by the tag
// and refuses tags it has never heard of.
type ChangeValidator struct {
	payloadValidators map[string]PayloadValidateFunc
}

// NewChangeValidator constructs a [ChangeValidator] with shape-only
// payload validators registered for every known entity type.
func NewChangeValidator() *ChangeValidator {
	v := &ChangeValidator{
		payloadValidators: make(map[string]PayloadValidateFunc, len(models.KnownEntityTypes())),
	}
	for _, entityType := range models.KnownEntityTypes() {
		v.payloadValidators[entityType] = validateJSONObjectPayload
	}
	return v
}

// RegisterPayloadValidator installs fn for the given entity type, replacing
// any previously registered validator. Registering a validator for a new
// tag also makes that tag known to the engine.
func (v *ChangeValidator) RegisterPayloadValidator(entityType string, fn PayloadValidateFunc) {
	v.payloadValidators[entityType] = fn
}

// Validate dispatches validation to the appropriate type-specific method
// based on the dynamic type of obj. Both value and pointer forms of each
// supported model are accepted.
//
// Supported types:
//   - models.Change / *models.Change
//   - models.PushRequest / *models.PushRequest
//   - models.PullRequest / *models.PullRequest
//
// Returns ErrUnsupportedType if obj does not match any known model.
// Optional fields restrict validation to the named subset; when omitted,
// a sensible default set of fields is validated.
func (v *ChangeValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Change:
		return v.validateChange(ctx, value, fields...)
	case *models.Change:
		return v.validateChange(ctx, *value, fields...)

	case models.PushRequest:
		return v.validatePushRequest(ctx, value, fields...)
	case *models.PushRequest:
		return v.validatePushRequest(ctx, *value, fields...)

	case models.PullRequest:
		return v.validatePullRequest(ctx, value, fields...)
	case *models.PullRequest:
		return v.validatePullRequest(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *ChangeValidator) validateChange(ctx context.Context, change models.Change, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldChangeID, FieldEntityID, FieldEntityType, FieldOp, FieldPayload, FieldClientTimestamp, FieldBaseSyncVersion}
	}

	for _, f := range fields {
		switch f {
		case FieldChangeID:
			if change.ChangeID == "" {
				return ErrInvalidChangeID
			}
		case FieldEntityID:
			if change.EntityID == "" {
				return ErrInvalidEntityID
			}
		case FieldEntityType:
			if _, known := v.payloadValidators[change.EntityType]; !known {
				return fmt.Errorf("%w: %q", ErrUnknownEntityType, change.EntityType)
			}
		case FieldOp:
			if !change.Op.Valid() {
				return fmt.Errorf("%w: %q", ErrInvalidOp, change.Op)
			}
		case FieldPayload:
			// Deletes carry no payload; upserts must carry one that the
			// entity type's validator accepts.
			if change.Op == models.OpDelete {
				continue
			}
			if len(change.Payload) == 0 {
				return ErrEmptyPayload
			}
			validatePayload, known := v.payloadValidators[change.EntityType]
			if !known {
				return fmt.Errorf("%w: %q", ErrUnknownEntityType, change.EntityType)
			}
			if err := validatePayload(ctx, change.Payload); err != nil {
				return err
			}
		case FieldClientTimestamp:
			if change.ClientTimestamp.IsZero() {
				return ErrZeroClientTimestamp
			}
		case FieldBaseSyncVersion:
			if change.BaseSyncVersion < 0 {
				return ErrNegativeBaseVersion
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *ChangeValidator) validatePushRequest(ctx context.Context, request models.PushRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldChanges}
	}

	for _, f := range fields {
		switch f {
		case FieldChanges:
			if len(request.Changes) == 0 {
				return ErrEmptyChanges
			}
			for i, change := range request.Changes {
				if err := v.validateChange(ctx, change); err != nil {
					return fmt.Errorf("validation error at index %d: %w", i, err)
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *ChangeValidator) validatePullRequest(ctx context.Context, request models.PullRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldEntityType, FieldLimit}
	}

	for _, f := range fields {
		switch f {
		case FieldEntityType:
			for _, entityType := range request.EntityTypes {
				if _, known := v.payloadValidators[entityType]; !known {
					return fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
				}
			}
		case FieldLimit:
			if request.Limit < 0 {
				return ErrNegativeLimit
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateJSONObjectPayload is the default shape check installed for every
// known entity type: the payload must parse as a JSON object. Field-level
// semantics stay with the business layer.
func validateJSONObjectPayload(_ context.Context, payload json.RawMessage) error {
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(payload, &asObject); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}
