// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/Qitmeer/vrx/common/hash"
	"github.com/Qitmeer/vrx/core/types/pow"
	"github.com/Qitmeer/vrx/params"
)

const (
	// vrxScanDepth is the number of spacings sampled behind the tip.
	vrxScanDepth = 5

	// vrxAverageDivisor divides the summed multipliers.  It stays fixed
	// when fewer spacings could be sampled.
	vrxAverageDivisor = 5

	// vrxFactor scales the multiplier into the integer divisor applied to
	// the target.
	vrxFactor = 10000

	// vrxSkewThreshold is how many more blocks of the other proof type
	// the window may hold before the multiplier is halved.
	vrxSkewThreshold = 3

	// vrxCurveRounds is the number of hourly decay rounds after which the
	// target resets to the limit.
	vrxCurveRounds = 5

	secondsPerHour = 60 * 60
)

// Spacing multipliers.  Slow spacings ease the target, fast ones tighten it.
const (
	vrxNeutral  = 1.0
	vrxSlow     = 0.75
	vrxVerySlow = 0.5
	vrxFast     = 1.25
	vrxFaster   = 1.5
	vrxFastest  = 2.0
)

// vrxRun holds the scratch values of one retarget.  Nothing in it outlives
// the call.
type vrxRun struct {
	params   *params.Params
	tip      *blockNode
	pos      bool
	limit    *big.Int
	velocity *blockNode

	spacings    [vrxScanDepth]int64
	multipliers [vrxScanDepth]float64
	average     float64
	prevPoW     int
	prevPoS     int
	reset       bool
}

// spacingMultiplier classifies one block interval in seconds.
func spacingMultiplier(p *params.Params, spacing int64) float64 {
	normal := int64(p.TargetTimePerBlock.Seconds())
	maximum := int64(p.MaxTimePerBlock.Seconds())
	down := normal - 60
	floor := normal - 90
	ceiling := maximum + 180

	switch {
	case spacing > ceiling:
		return vrxVerySlow
	case spacing > maximum:
		return vrxSlow
	case spacing >= normal:
		return vrxNeutral
	case spacing < floor:
		return vrxFastest
	case spacing < down:
		return vrxFaster
	default:
		return vrxFast
	}
}

// isDryRun reports whether the tip is too young, or too close to a payment
// update, for the engine to run.
func isDryRun(p *params.Params, tip *blockNode) bool {
	if tip.height < p.DryRunHeight {
		return true
	}
	t := tip.timestamp
	if t > p.PaymentUpdate1 && t < p.PaymentUpdate1+dryRunWindow {
		return true
	}
	return t > p.PaymentUpdate2 && t < p.PaymentUpdate2+dryRunWindow
}

// baseEngine samples the spacings behind the tip and averages their
// multipliers.
func (r *vrxRun) baseEngine() {
	curvePatched := r.tip.timestamp > r.params.CurvePatchTime
	cur := r.tip
	for i := 0; i < vrxScanDepth && cur.parent != nil; i++ {
		prev := cur.parent
		r.spacings[i] = cur.timestamp - prev.timestamp
		r.multipliers[i] = spacingMultiplier(r.params, r.spacings[i])

		var stake bool
		if curvePatched {
			stake = prev.isProofOfStake()
		} else {
			stake = r.pos
		}
		if stake {
			r.prevPoS++
		} else {
			r.prevPoW++
		}
		cur = prev
	}

	var sum float64
	for _, m := range r.multipliers {
		sum += m
	}
	r.average = sum / vrxAverageDivisor
}

// skew halves the multiplier of the proof type that is falling behind.
func (r *vrxRun) skew() {
	skewed := (!r.pos && r.prevPoS-r.prevPoW > vrxSkewThreshold) ||
		(r.pos && r.prevPoW-r.prevPoS > vrxSkewThreshold)
	if !skewed {
		return
	}
	r.average /= 2
	if r.average < 0.5 {
		r.average = 0.5
	}
}

// curve decays the multiplier when the last block of the requested type is
// old.
func (r *vrxRun) curve() {
	if r.tip.timestamp <= r.params.CurvePatchTime {
		return
	}

	if r.tip.timestamp > r.params.PaymentUpdate2 {
		difTime := r.tip.timestamp - r.velocity.timestamp
		hourRounds := int64(1)
		difCurve := 2.0
		for difTime > hourRounds*secondsPerHour {
			if hourRounds > vrxCurveRounds {
				r.reset = true
				return
			}
			r.average /= difCurve
			difCurve++
			hourRounds++
		}
		return
	}

	prev := r.velocity.parent
	if prev == nil {
		return
	}
	difTime := r.velocity.timestamp - prev.timestamp
	for hour := int64(1); hour <= 4; hour++ {
		if difTime > hour*secondsPerHour {
			r.average /= 2
		}
	}
}

// retarget applies the multiplier to the last target of the requested type.
func (r *vrxRun) retarget() uint32 {
	factor := int64(vrxFactor * r.average)
	if factor <= 0 {
		return pow.BigToCompact(r.limit)
	}
	target := pow.CompactToBig(r.velocity.bits)
	target.Div(target, big.NewInt(factor))
	target.Mul(target, big.NewInt(vrxFactor))
	if target.Cmp(r.limit) > 0 {
		target.Set(r.limit)
	}
	return pow.BigToCompact(target)
}

// calcNextRequiredDifficulty returns the compact target a child of tip of the
// requested proof type must carry.  It only reads the nodes behind tip.
func calcNextRequiredDifficulty(p *params.Params, tip *blockNode, proofOfStake bool) uint32 {
	limit := p.PowLimit
	if proofOfStake {
		limit = p.PosLimit
	}
	if tip == nil {
		return pow.BigToCompact(limit)
	}

	r := &vrxRun{
		params:   p,
		tip:      tip,
		pos:      proofOfStake,
		limit:    limit,
		velocity: tip.lastOfType(proofOfStake),
	}
	if isDryRun(p, tip) {
		return pow.BigToCompact(limit)
	}

	r.baseEngine()
	r.skew()
	r.curve()
	if r.reset {
		log.Debug("Difficulty curve reset", "height", tip.height+1, "pos", proofOfStake)
		return pow.BigToCompact(limit)
	}

	bits := r.retarget()
	log.Trace("Terminal velocity retarget", "height", tip.height+1, "pos", proofOfStake,
		"spacings", r.spacings, "multiplier", r.average,
		"old", r.velocity.bits, "new", bits)
	return bits
}

// CalcNextRequiredDifficulty calculates the required difficulty for the block
// after the end of the current best chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcNextRequiredDifficulty(proofOfStake bool) uint32 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return calcNextRequiredDifficulty(b.params, b.bestNode, proofOfStake)
}

// GetNextTargetRequired returns the compact target of a child of the given
// block.
func (b *BlockChain) GetNextTargetRequired(tip *hash.Hash, proofOfStake bool) (uint32, error) {
	node := b.index.LookupNode(tip)
	if node == nil {
		return 0, HashError(tip.String())
	}
	return calcNextRequiredDifficulty(b.params, node, proofOfStake), nil
}
