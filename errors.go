package facetset

import "errors"

// Configuration errors are returned from New and signal a development-time
// bug: they fail fast at construction, never at request time. Malformed
// request parameters are never errors; they degrade to "no selection".
// Dataset provider failures propagate from Evaluate wrapped but unclassified.
var (
	// ErrUnknownField signals a FieldSpec naming a field absent from the schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownStrategy signals an unresolvable filter strategy.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrBadOption signals a conflicting or invalid option value.
	ErrBadOption = errors.New("bad option")
)
