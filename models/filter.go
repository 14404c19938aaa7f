package models

// ReadFilter narrows what the local store's read path returns.
// Reads are always served from the local cache, never from the network,
// so every field filters over locally known state only.
type ReadFilter struct {
	// EntityTypes limits the result to the listed discriminators.
	// Empty means all types.
	EntityTypes []string `json:"entity_types,omitempty"`

	// IncludeDeleted keeps soft-deleted records in the result.
	// By default they are filtered out — the UI rarely wants them,
	// but reconciliation diagnostics do.
	IncludeDeleted bool `json:"include_deleted,omitempty"`

	// Limit caps the number of returned snapshots. Zero means no cap.
	Limit int `json:"limit,omitempty"`
}
