package tree

import "errors"

// Domain errors for the tree package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, tree.ErrAccessDenied) {
//	    // ask the peer to raise its userlevel
//	}
var (
	// ErrNotFound is returned when a URI segment does not exist.
	ErrNotFound = errors.New("tree: not found")

	// ErrNotAContainer is returned when an intermediate URI segment names a leaf.
	ErrNotAContainer = errors.New("tree: not a container")

	// ErrWrongKind is returned for a value operation on an event, a signal on
	// a parameter, or a leaf operation on a container.
	ErrWrongKind = errors.New("tree: wrong node kind")

	// ErrWrongType is returned when a written value's kind differs from the
	// parameter's declared type.
	ErrWrongType = errors.New("tree: wrong value type")

	// ErrReadOnly is returned when writing a read-only parameter.
	ErrReadOnly = errors.New("tree: read-only")

	// ErrAccessDenied is returned when the caller's effective userlevel is
	// below the node's threshold.
	ErrAccessDenied = errors.New("tree: access denied")

	// ErrHookRejected is returned when a parameter's change hook refuses a
	// value. The stored value is left unchanged.
	ErrHookRejected = errors.New("tree: hook rejected value")

	// ErrExists is returned when adding a node whose name is already taken.
	ErrExists = errors.New("tree: already exists")

	// ErrInvalidURI is returned for malformed URIs and node names.
	ErrInvalidURI = errors.New("tree: invalid uri")
)
