package gigue

import (
	"math/rand"
	"testing"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		value, alignment, want int
	}{
		{10, 4, 8},
		{12, 4, 12},
		{7, 1, 7},
		{7, 8, 0},
	}
	for _, tt := range tests {
		if got := align(tt.value, tt.alignment); got != tt.want {
			t.Errorf("align(%d, %d) = %d, want %d", tt.value, tt.alignment, got, tt.want)
		}
	}
}

func TestGenerateTruncNormStaysInBounds(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		v := generateTruncNorm(r, 10, 5, 0, 20)
		if v < 0 || v > 20 {
			t.Fatalf("draw %v out of bounds [0,20]", v)
		}
	}
}

func TestGeneratePoissonNonNegative(t *testing.T) {
	r := rand.New(rand.NewSource(12))
	for i := 0; i < 1000; i++ {
		if k := generatePoisson(r, 2.5); k < 0 {
			t.Fatalf("poisson draw %d is negative", k)
		}
	}
}

func TestGeneratePoissonZeroMeanAlwaysZero(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	if k := generatePoisson(r, 0); k != 0 {
		t.Fatalf("expected 0, got %d", k)
	}
}

func TestSextPreservesSmallPositive(t *testing.T) {
	if got := sext(5, 12); got != 5 {
		t.Fatalf("sext(5,12) = %d, want 5", got)
	}
}

func TestSextNegatesHighBit(t *testing.T) {
	if got := sext(0xFFF, 12); got != -1 {
		t.Fatalf("sext(0xFFF,12) = %d, want -1", got)
	}
}
