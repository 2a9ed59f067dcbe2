package registry

import "errors"

var (
	ErrDuplicateZone    = errors.New("registry: duplicate zone")
	ErrDuplicateNode    = errors.New("registry: duplicate node")
	ErrNotFound         = errors.New("registry: not found")
	ErrZoneNotEmpty     = errors.New("registry: zone not empty")
	ErrCapacityExceeded = errors.New("registry: capacity exceeded")
	ErrInvalidWeight    = errors.New("registry: invalid weight")
)
