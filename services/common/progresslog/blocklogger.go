// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2016-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"sync"
	"time"

	"github.com/Qitmeer/vrx/core/types"
	"github.com/Qitmeer/vrx/log"
)

// BlockProgressLogger provides periodic logging for other services in order
// to show users progress of certain "actions" involving some or all current
// blocks. Ex: syncing to best chain, importing blocks, etc.
type BlockProgressLogger struct {
	receivedLogBlocks int64
	receivedLogTx     int64
	lastBlockLogTime  time.Time

	subsystemLogger log.Logger
	progressAction  string
	interval        time.Duration
	sync.Mutex
}

// NewBlockProgressLogger returns a new block progress logger.
func NewBlockProgressLogger(progressMessage string, logger log.Logger) *BlockProgressLogger {
	return &BlockProgressLogger{
		lastBlockLogTime: time.Now(),
		progressAction:   progressMessage,
		subsystemLogger:  logger,
		interval:         10 * time.Second,
	}
}

// LogBlockHeight logs a new block height as an information message to show
// progress to the user. In order to prevent spam, it limits logging to one
// message every 10 seconds with duration and totals included.  It reports
// whether a message was written.
func (b *BlockProgressLogger) LogBlockHeight(block *types.SerializedBlock, height int64) bool {
	b.Lock()
	defer b.Unlock()
	b.receivedLogBlocks++
	b.receivedLogTx += int64(len(block.Block().Transactions))

	now := time.Now()
	duration := now.Sub(b.lastBlockLogTime)
	if duration < b.interval {
		return false
	}

	// Truncate the duration to 10s of milliseconds.
	tDuration := duration.Truncate(10 * time.Millisecond)

	b.subsystemLogger.Info(b.progressAction, "blocks", b.receivedLogBlocks,
		"txs", b.receivedLogTx, "period", tDuration, "height", height,
		"time", block.Block().Header.Timestamp)

	b.receivedLogBlocks = 0
	b.receivedLogTx = 0
	b.lastBlockLogTime = now
	return true
}

func (b *BlockProgressLogger) SetLastLogTime(time time.Time) {
	b.Lock()
	b.lastBlockLogTime = time
	b.Unlock()
}
