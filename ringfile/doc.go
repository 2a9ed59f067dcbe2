// Package ringfile persists a registry and its ring to durable storage
// and restores them verbatim. It is the load/save collaborator the
// placement engine itself stays agnostic of: the engine exposes
// complete state, ringfile turns it into a gzip-compressed canonical
// CBOR blob and back. A blob that fails validation on the way back in
// is reported as an error; nothing is repaired silently.
package ringfile
