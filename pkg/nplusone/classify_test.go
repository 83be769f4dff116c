package nplusone

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/mercury/pkg/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		size      int
		threshold float64
		want      core.Severity
	}{
		{10, 10, core.SeverityFailure},
		{11, 10, core.SeverityFailure},
		{9, 10, core.SeverityWarning},
		{8, 10, core.SeverityWarning},
		{7, 10, core.SeverityNotice},
		{5, 10, core.SeverityNotice},
		{4, 10, core.SeverityNone},
		{2, 10, core.SeverityNone},
		// the notice floor of 3 dominates small thresholds
		{3, 4, core.SeverityNotice},
		{2, 4, core.SeverityNone},
		{1, 2, core.SeverityNone},
		{2, 2, core.SeverityFailure},
		// zero threshold always fails
		{0, 0, core.SeverityFailure},
		{1, 0, core.SeverityFailure},
		{50, 100, core.SeverityNotice},
		{80, 100, core.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%g", tt.size, tt.threshold), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.size, tt.threshold))
		})
	}
}

func TestClassify_Disabled(t *testing.T) {
	for _, size := range []int{0, 3, 1000, math.MaxInt32} {
		assert.Equal(t, core.SeverityNone, Classify(size, math.Inf(1)))
	}
}

func TestClassify_Monotonic(t *testing.T) {
	for _, threshold := range []float64{0, 1, 2, 3, 5, 7.5, 10, 25, 100} {
		prev := core.SeverityNone
		for size := 0; size <= 150; size++ {
			got := Classify(size, threshold)
			assert.GreaterOrEqual(t, got, prev, "threshold %g size %d", threshold, size)
			prev = got
		}
	}
}
