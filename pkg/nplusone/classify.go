package nplusone

import (
	"math"

	"github.com/leapstack-labs/mercury/pkg/core"
)

// Severity band fractions of the N+1 threshold, and the notice floor.
const (
	WarningRatio = 0.8
	NoticeRatio  = 0.5
	NoticeFloor  = 3
)

// Classify assigns a severity to a pattern seen size times against threshold.
//
//	Failure  size >= threshold
//	Warning  size >= 0.8 * threshold
//	Notice   size >= max(3, 0.5 * threshold)
//
// A zero threshold always fails; an infinite (disabled) threshold never classifies.
func Classify(size int, threshold float64) core.Severity {
	n := float64(size)
	switch {
	case n >= threshold:
		return core.SeverityFailure
	case n >= WarningRatio*threshold:
		return core.SeverityWarning
	case n >= math.Max(NoticeFloor, NoticeRatio*threshold):
		return core.SeverityNotice
	default:
		return core.SeverityNone
	}
}
