// Copyright (c) 2017-2018 The qitmeer developers

package mempool

import "github.com/Qitmeer/vrx/metrics"

var (
	acceptedMeter = metrics.NewMeter("txpool/accepted")
	rejectedMeter = metrics.NewMeter("txpool/rejected")
	poolSizeGauge = metrics.NewGauge("txpool/size")
)
