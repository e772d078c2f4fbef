package util

import (
	"testing"
	"time"
)

func TestSkipThrottler(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tt := NewSkipThrottler(time.Second)
	tt.now = func() time.Time { return now }

	steps := []struct {
		advance time.Duration
		ok      bool
	}{
		{advance: 0, ok: true},
		{advance: 500 * time.Millisecond, ok: false},
		{advance: 499 * time.Millisecond, ok: false},
		{advance: time.Millisecond, ok: true},
		{advance: 2 * time.Second, ok: true},
	}
	for i, s := range steps {
		now = now.Add(s.advance)
		if ok := tt.Ok(); ok != s.ok {
			t.Fatalf("%d %v, expected %v", i, ok, s.ok)
		}
	}
}
