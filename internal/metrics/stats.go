package metrics

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/san-kum/timedpid/internal/dynamo"
)

// ErrorStat summarises the whole error series with a statistic.
type ErrorStat struct {
	name   string
	abs    bool
	reduce func(stats.Float64Data) (float64, error)
	errors stats.Float64Data
}

func NewErrorStdDev() *ErrorStat {
	return &ErrorStat{
		name:   "error_stddev",
		reduce: stats.StandardDeviation,
	}
}

func NewErrorMean() *ErrorStat {
	return &ErrorStat{
		name:   "error_mean",
		reduce: stats.Mean,
	}
}

// NewErrorPercentile reports a percentile of the absolute error.
func NewErrorPercentile(percent float64) *ErrorStat {
	return &ErrorStat{
		name: fmt.Sprintf("error_p%.0f", percent),
		abs:  true,
		reduce: func(d stats.Float64Data) (float64, error) {
			return stats.Percentile(d, percent)
		},
	}
}

func (m *ErrorStat) Name() string { return m.name }

func (m *ErrorStat) Observe(s dynamo.Sample) {
	e := s.Error()
	if m.abs {
		e = math.Abs(e)
	}
	m.errors = append(m.errors, e)
}

func (m *ErrorStat) Value() float64 {
	v, err := m.reduce(m.errors)
	if err != nil {
		return 0
	}
	return v
}

func (m *ErrorStat) Reset() {
	m.errors = m.errors[:0]
}
