// Package registry owns the authoritative set of zones and nodes that
// placement is computed from. Zones and nodes live in fixed-capacity
// slot tables; each record keeps its slot for its whole lifetime, and
// free slots are handed out by scanning forward from a rotating cursor
// so that two registries fed the same sequence of operations end up
// bit-identical. The registry also partitions its nodes into
// zone-diverse replica groups for the ring builder.
//
// A Registry is not safe for concurrent use. Callers sharing one across
// goroutines must serialize mutations against each other and against
// readers.
package registry
