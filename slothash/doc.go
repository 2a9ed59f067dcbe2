// Package slothash maps arbitrary identifiers to ring slots. It hashes
// the identifier's string form and keeps only the top bits of a
// well-distributed digest, so slot assignment is uniform regardless of
// identifier structure.
package slothash
