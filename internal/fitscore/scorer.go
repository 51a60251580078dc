package fitscore

import (
	"github.com/shopspring/decimal"
)

// Verdict is the coarse compatibility of a producer against an RFQ.
// Advisory only; it never blocks bid creation.
type Verdict string

const (
	VerdictGood     Verdict = "good"
	VerdictPossible Verdict = "possible"
	VerdictCannot   Verdict = "cannot"
)

// Requirements are the RFQ-side inputs to the scorer.
type Requirements struct {
	Volume          decimal.Decimal
	MinGHGReduction decimal.Decimal
}

// Capability is the producer-side declared band.
type Capability struct {
	MaxAnnualVolume decimal.Decimal
	MaxGHGReduction decimal.Decimal
}

// Bands are the configured thresholds separating good from possible.
type Bands struct {
	// VolumeComfortRatio is the fraction of declared capacity a request may
	// take up and still score good (e.g. 0.8).
	VolumeComfortRatio decimal.Decimal
	// GHGMarginPts is how many percentage points of emissions headroom a
	// good verdict requires.
	GHGMarginPts decimal.Decimal
}

// DefaultBands returns the thresholds used when config leaves them unset.
func DefaultBands() Bands {
	return Bands{
		VolumeComfortRatio: decimal.NewFromFloat(0.8),
		GHGMarginPts:       decimal.NewFromInt(5),
	}
}

// Score derives the verdict from requirements vs capability. Monotonic:
// raising requested volume or required reduction, all else equal, can only
// move the verdict toward cannot.
func Score(req Requirements, cap Capability, bands Bands) Verdict {
	if req.Volume.GreaterThan(cap.MaxAnnualVolume) || req.MinGHGReduction.GreaterThan(cap.MaxGHGReduction) {
		return VerdictCannot
	}
	comfortVolume := cap.MaxAnnualVolume.Mul(bands.VolumeComfortRatio)
	comfortGHG := cap.MaxGHGReduction.Sub(bands.GHGMarginPts)
	if req.Volume.LessThanOrEqual(comfortVolume) && req.MinGHGReduction.LessThanOrEqual(comfortGHG) {
		return VerdictGood
	}
	return VerdictPossible
}
