package models

// Entity type discriminators known to the engine out of the box.
// The business layer can register validators for additional types;
// the engine itself only routes by the tag.
const (
	// EntityTypeLogbookEntry is a completed practice session record.
	EntityTypeLogbookEntry = "logbook_entry"

	// EntityTypeGoal is a user-defined practice goal.
	EntityTypeGoal = "goal"

	// EntityTypePlanOccurrence is a scheduled practice occurrence.
	// It shares the exact same versioning model as the other types.
	EntityTypePlanOccurrence = "plan_occurrence"
)

// KnownEntityTypes lists the discriminators the engine ships validators for.
func KnownEntityTypes() []string {
	return []string{
		EntityTypeLogbookEntry,
		EntityTypeGoal,
		EntityTypePlanOccurrence,
	}
}
