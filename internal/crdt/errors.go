package crdt

import "errors"

var (
	errInvariantGCounterNilMap = errors.New("crdt: GCounter used without NewGCounter")
	errInvariantORSetNilMap    = errors.New("crdt: ORSet used without NewORSet")
)
