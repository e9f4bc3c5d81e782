package retry

import (
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	base := 100 * time.Millisecond

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 100 * time.Millisecond}, // clamped to attempt 0
		{0, 100 * time.Millisecond},  // base * 2^0 = 100ms
		{1, 200 * time.Millisecond},  // base * 2^1 = 200ms
		{2, 400 * time.Millisecond},  // base * 2^2 = 400ms
		{4, 1600 * time.Millisecond}, // base * 2^4 = 1600ms
		{9, MaxDelay},                // 51.2s capped
		{62, MaxDelay},               // overflow guarded
	}

	for _, tt := range tests {
		result := ExponentialBackoff(tt.attempt, base)
		if result != tt.expected {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, result, tt.expected)
		}
	}
}

func TestWithJitter(t *testing.T) {
	d := time.Second
	for i := 0; i < 100; i++ {
		got := WithJitter(d)
		if got < d || got > d+d/2 {
			t.Fatalf("jittered delay %v outside [%v, %v]", got, d, d+d/2)
		}
	}
	if WithJitter(0) != 0 {
		t.Error("zero delay should stay zero")
	}
}
