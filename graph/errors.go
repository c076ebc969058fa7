package graph

import "errors"

var (
	// ErrUnknownNode is returned when a name does not resolve to a node.
	ErrUnknownNode = errors.New("graph: unknown node")

	// ErrNodeExists is returned when loading state that reuses a name.
	ErrNodeExists = errors.New("graph: node already exists")

	// ErrSlotRange is returned for input slot indexes outside a node's arity.
	ErrSlotRange = errors.New("graph: input slot out of range")

	// ErrNotConnected is returned when disconnecting nodes that are not
	// linked.
	ErrNotConnected = errors.New("graph: nodes are not connected")

	// ErrCycle is returned when a connection would make the routing
	// cyclic.
	ErrCycle = errors.New("graph: connection would create a cycle")

	// ErrUnknownEffect is returned for effect types missing from the
	// registry.
	ErrUnknownEffect = errors.New("graph: unknown effect type")

	// ErrEffectRange is returned for effect chain indexes out of range.
	ErrEffectRange = errors.New("graph: effect index out of range")

	// ErrKindMismatch is returned when an operation needs a different node
	// kind, e.g. mixer slot gains on a plain processor.
	ErrKindMismatch = errors.New("graph: operation not supported by node kind")
)
