package scale

import (
	"errors"
	"fmt"
	"math"
)

var ErrDegenerateRange = errors.New("source range start and end are equal")

// Mapper converts values between two linear ranges. It performs pure
// interpolation and never clamps; callers clamp at the canonical boundary so
// that misconfigured device limits stay diagnosable.
type Mapper struct {
	sourceStart float64
	sourceEnd   float64
	targetStart float64
	targetEnd   float64
}

// New creates a mapper from [sourceStart, sourceEnd] to [targetStart, targetEnd]
func New(sourceStart, sourceEnd, targetStart, targetEnd float64) (*Mapper, error) {
	if sourceStart == sourceEnd {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateRange, sourceStart)
	}
	return &Mapper{
		sourceStart: sourceStart,
		sourceEnd:   sourceEnd,
		targetStart: targetStart,
		targetEnd:   targetEnd,
	}, nil
}

// ToTarget converts a source-range value to the target range
func (m *Mapper) ToTarget(x float64) float64 {
	return m.targetStart + (x-m.sourceStart)*(m.targetEnd-m.targetStart)/(m.sourceEnd-m.sourceStart)
}

// ToSource converts a target-range value back to the source range
func (m *Mapper) ToSource(x float64) float64 {
	return m.sourceStart + (x-m.targetStart)*(m.sourceEnd-m.sourceStart)/(m.targetEnd-m.targetStart)
}

// ToTargetRounded converts to the target range and rounds to the nearest integer
func (m *Mapper) ToTargetRounded(x float64) int {
	return int(math.Round(m.ToTarget(x)))
}

// ToSourceRounded converts to the source range and rounds to the nearest integer
func (m *Mapper) ToSourceRounded(x float64) int {
	return int(math.Round(m.ToSource(x)))
}
