package slothash

import (
	"crypto/md5"
	"encoding/binary"
)

// Slot returns the slot for id on a ring of 2^ringPower slots.
// It interprets the first 4 bytes of the MD5 digest of id as a
// big-endian uint32 and keeps the top ringPower bits, so the result is
// always in [0, 2^ringPower). MD5 is used for its distribution only,
// not for security. Deterministic: the same id always lands on the
// same slot for a given ringPower.
func Slot(ringPower int, id string) uint32 {
	sum := md5.Sum([]byte(id))
	return binary.BigEndian.Uint32(sum[:4]) >> (32 - uint(ringPower))
}
