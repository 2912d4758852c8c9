package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundSmart(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{3333333.333, 3333333},
		{1000.4, 1000},
		{999.996, 1000},
		{12.346, 12.35},
		{1, 1},
		{0.30000003, 0.3},
		{0.025, 0.025},
		{0.123456, 0.1235},
		{0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RoundSmart(tt.in), 1e-9, "RoundSmart(%v)", tt.in)
	}
}

func TestRoundBenchmark(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{12.34, 12.3},
		{2.7000000000000006, 2.7},
		{1.234, 1.23},
		{0.1676, 0.168},
		{0.0004, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RoundBenchmark(tt.in), 1e-9, "RoundBenchmark(%v)", tt.in)
	}
}

func TestSpaces(t *testing.T) {
	assert.Equal(t, "0", Spaces(0))
	assert.Equal(t, "999", Spaces(999))
	assert.Equal(t, "1 000", Spaces(1000))
	assert.Equal(t, "3 333 333", Spaces(3333333))
	assert.Equal(t, "1 234.5", Spaces(1234.5))
	assert.Equal(t, "0.025", Spaces(0.025))
	assert.Equal(t, "-12 000", Spaces(-12000))
}

func TestCalc(t *testing.T) {
	assert.Equal(t, "", Calc(0))
	assert.Equal(t, "", Calc(-5))
	assert.Equal(t, "40 000", Calc(40000))
	assert.Equal(t, "0.3", Calc(0.300000003))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "0", Number(0))
	assert.Equal(t, "150", Number(150))
	assert.Equal(t, "1,000,000", Number(1000000))
	assert.Equal(t, "$180", Money("$", 180))
}
