package metrics

import (
	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/internal/dynamo"
)

const DefaultSettlingBand = 0.02

// Default returns the metric set recorded for every run.
func Default(rng *control.Range) []dynamo.Metric {
	return []dynamo.Metric{
		NewIAE(),
		NewISE(),
		NewControlEffort(),
		NewSaturation(rng),
		NewOvershoot(),
		NewSettlingTime(DefaultSettlingBand),
		NewErrorMean(),
		NewErrorStdDev(),
		NewErrorPercentile(95),
	}
}
