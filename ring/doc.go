// Package ring turns a registry's replica groups into dense
// slot-to-node arrays and answers placement queries against them. Every
// build produces a brand-new immutable snapshot of 1+replicas arrays;
// the newest few snapshots are retained so that, during a rebalance, a
// data mover can walk from the current placement back through history
// to find where data actually still lives.
//
// A Ring is not safe for concurrent use; see the registry package for
// the external-serialization contract.
package ring
