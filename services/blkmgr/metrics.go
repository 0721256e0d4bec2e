// Copyright (c) 2017-2018 The qitmeer developers

package blkmgr

import "github.com/Qitmeer/vrx/metrics"

var (
	misbehaviorMeter = metrics.NewMeter("peers/misbehavior")
	bannedMeter      = metrics.NewMeter("peers/banned")
)
