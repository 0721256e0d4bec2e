// Copyright (c) 2017-2018 The qitmeer developers
package hash

import (
	"github.com/dchest/blake256"
)

// PowHashH is the proof-of-work hash of a serialized header.
func PowHashH(b []byte) Hash {
	h := blake256.New()
	h.Write(b)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
