package fitscore

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestScore(t *testing.T) {
	capability := Capability{MaxAnnualVolume: d("10000"), MaxGHGReduction: d("80")}
	bands := DefaultBands()

	cases := []struct {
		name string
		req  Requirements
		want Verdict
	}{
		{"well inside band", Requirements{Volume: d("5000"), MinGHGReduction: d("60")}, VerdictGood},
		{"volume over capacity", Requirements{Volume: d("10001"), MinGHGReduction: d("60")}, VerdictCannot},
		{"ghg over capability", Requirements{Volume: d("5000"), MinGHGReduction: d("81")}, VerdictCannot},
		{"volume in stretch zone", Requirements{Volume: d("9000"), MinGHGReduction: d("60")}, VerdictPossible},
		{"ghg in stretch zone", Requirements{Volume: d("5000"), MinGHGReduction: d("78")}, VerdictPossible},
		{"volume at comfort edge", Requirements{Volume: d("8000"), MinGHGReduction: d("60")}, VerdictGood},
		{"ghg at comfort edge", Requirements{Volume: d("5000"), MinGHGReduction: d("75")}, VerdictGood},
		{"both at declared maximum", Requirements{Volume: d("10000"), MinGHGReduction: d("80")}, VerdictPossible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.req, capability, bands))
		})
	}
}

// Increasing requested volume, all else fixed, never improves the verdict.
func TestScore_MonotonicInVolume(t *testing.T) {
	capability := Capability{MaxAnnualVolume: d("10000"), MaxGHGReduction: d("80")}
	bands := DefaultBands()

	rank := map[Verdict]int{VerdictGood: 0, VerdictPossible: 1, VerdictCannot: 2}
	prev := VerdictGood
	for vol := int64(100); vol <= 12000; vol += 100 {
		got := Score(Requirements{Volume: decimal.NewFromInt(vol), MinGHGReduction: d("50")}, capability, bands)
		assert.GreaterOrEqual(t, rank[got], rank[prev], "verdict improved when volume rose to %d", vol)
		prev = got
	}
}

func TestScore_MonotonicInGHG(t *testing.T) {
	capability := Capability{MaxAnnualVolume: d("10000"), MaxGHGReduction: d("80")}
	bands := DefaultBands()

	rank := map[Verdict]int{VerdictGood: 0, VerdictPossible: 1, VerdictCannot: 2}
	prev := VerdictGood
	for ghg := int64(10); ghg <= 95; ghg++ {
		got := Score(Requirements{Volume: d("1000"), MinGHGReduction: decimal.NewFromInt(ghg)}, capability, bands)
		assert.GreaterOrEqual(t, rank[got], rank[prev], "verdict improved when required reduction rose to %d", ghg)
		prev = got
	}
}
