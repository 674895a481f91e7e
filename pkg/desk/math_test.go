package desk

import (
	"math"
	"testing"
)

func TestAddU64(t *testing.T) {
	tests := []struct {
		a, b uint64
		want uint64
		ok   bool
	}{
		{0, 0, 0, true},
		{1, 2, 3, true},
		{math.MaxUint64, 0, math.MaxUint64, true},
		{math.MaxUint64, 1, 0, false},
		{math.MaxUint64 / 2, math.MaxUint64/2 + 1, math.MaxUint64, true},
	}
	for _, tt := range tests {
		got, ok := addU64(tt.a, tt.b)
		if ok != tt.ok {
			t.Errorf("addU64(%d, %d) ok = %v, want %v", tt.a, tt.b, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Errorf("addU64(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMulU64(t *testing.T) {
	tests := []struct {
		a, b uint64
		want uint64
		ok   bool
	}{
		{0, math.MaxUint64, 0, true},
		{3, 7, 21, true},
		{1 << 32, 1 << 31, 1 << 63, true},
		{1 << 32, 1 << 32, 0, false},
		{math.MaxUint64, 2, 0, false},
	}
	for _, tt := range tests {
		got, ok := mulU64(tt.a, tt.b)
		if ok != tt.ok {
			t.Errorf("mulU64(%d, %d) ok = %v, want %v", tt.a, tt.b, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Errorf("mulU64(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
