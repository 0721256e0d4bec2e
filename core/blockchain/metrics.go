// Copyright (c) 2017-2018 The qitmeer developers

package blockchain

import "github.com/Qitmeer/vrx/metrics"

var (
	blocksAcceptedMeter = metrics.NewMeter("chain/blocks/accepted")
	blocksOrphanedMeter = metrics.NewMeter("chain/blocks/orphaned")
	blocksRejectedMeter = metrics.NewMeter("chain/blocks/rejected")
	reorgCounter        = metrics.NewCounter("chain/reorgs")
	connectTimer        = metrics.NewTimer("chain/connect")
)
