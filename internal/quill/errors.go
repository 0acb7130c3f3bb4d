package quill

import "errors"

// Sentinel errors for invariant violations and expected failure modes.
// Callers match with errors.Is; layers add context with fmt.Errorf %w.
var (
	// ErrLeafViolation is returned when an operation would leave a node
	// holding both child nodes and content or a version store.
	ErrLeafViolation = errors.New("node cannot hold both child nodes and content")

	// ErrDepthExceeded is returned when an insert or move would push a
	// node past the maximum nesting depth.
	ErrDepthExceeded = errors.New("maximum nesting depth exceeded")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned on a branch or version name collision
	// within one owner.
	ErrDuplicateName = errors.New("name already in use")

	// ErrLastItem is returned when deleting the only remaining version
	// or branch of an entity.
	ErrLastItem = errors.New("cannot delete the last remaining item")

	// ErrUncommittedChanges is returned when a branch switch is blocked
	// by uncommitted changes in the store's working tree.
	ErrUncommittedChanges = errors.New("uncommitted changes present")

	// ErrStoreCorrupted is returned when a store's on-disk state is
	// inconsistent (missing head, missing history root, empty branch
	// set). Never auto-repaired; the wrapped message carries a
	// remediation recommendation.
	ErrStoreCorrupted = errors.New("version store is corrupted")
)
