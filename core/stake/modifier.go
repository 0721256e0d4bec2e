// Copyright (c) 2017-2018 The qitmeer developers

package stake

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/core/serialization"
)

// entropyBits is the number of ancestors whose entropy bits are folded into
// a fresh modifier.
const entropyBits = 64

// lastGenerated walks back from node to the latest block that generated a
// modifier.  Genesis always has.
func lastGenerated(chain blockchain.ChainReader, node *blockchain.BlockInfo) (*blockchain.BlockInfo, error) {
	for !node.GeneratedStakeModifier {
		parent := chain.BlockInfo(&node.PrevHash)
		if parent == nil {
			return nil, fmt.Errorf("no generated stake modifier below %v", node.Hash)
		}
		node = parent
	}
	return node, nil
}

// ComputeNextStakeModifier returns the modifier of a child of prev.  The
// modifier is kept for one modifier interval and then regenerated from the
// previous modifier, the proof hash of prev and the entropy bits of recent
// blocks.
func (c *Checker) ComputeNextStakeModifier(chain blockchain.ChainReader,
	prev *blockchain.BlockInfo) (uint64, bool, error) {

	if prev == nil {
		return 0, true, nil
	}
	last, err := lastGenerated(chain, prev)
	if err != nil {
		return 0, false, err
	}

	interval := int64(c.params.ModifierInterval.Seconds())
	if interval <= 0 || last.Time/interval >= prev.Time/interval {
		return last.StakeModifier, false, nil
	}

	var entropy uint64
	node := prev
	for i := uint(0); i < entropyBits && node != nil; i++ {
		entropy |= uint64(node.StakeEntropyBit) << i
		node = chain.BlockInfo(&node.PrevHash)
	}

	var buf bytes.Buffer
	serialization.WriteElements(&buf, last.StakeModifier, entropy, prev.ProofHash)
	h := hash.DoubleHashH(buf.Bytes())
	modifier := binary.LittleEndian.Uint64(h[:8])

	log.Debug("Generated stake modifier", "height", prev.Height+1,
		"modifier", fmt.Sprintf("%016x", modifier))
	return modifier, true, nil
}
