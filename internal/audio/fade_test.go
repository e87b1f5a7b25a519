package audio

import (
	"context"
	"testing"
	"time"
)

func TestRunFadeEndsExactlyOnTarget(t *testing.T) {
	tests := []struct {
		name     string
		from, to float64
		steps    int
	}{
		{"fade in 0.6", 0, 0.6, 20},
		{"fade in 0.7 odd steps", 0, 0.7, 7},
		{"fade out", 0.6, 0, 10},
		{"single step", 0, 0.3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []float64
			err := runFade(context.Background(), func(v float64) { got = append(got, v) }, tt.from, tt.to, 20*time.Millisecond, tt.steps)
			if err != nil {
				t.Fatalf("runFade failed: %v", err)
			}
			if len(got) != tt.steps+1 {
				t.Fatalf("Expected %d volume sets, got %d", tt.steps+1, len(got))
			}
			if got[len(got)-1] != tt.to {
				t.Errorf("Expected final volume exactly %v, got %v", tt.to, got[len(got)-1])
			}

			lo, hi := min(tt.from, tt.to), max(tt.from, tt.to)
			for i, v := range got {
				if v < lo || v > hi {
					t.Errorf("step %d: volume %v outside [%v, %v]", i, v, lo, hi)
				}
				if i > 0 {
					rising := tt.to > tt.from
					if rising && v < got[i-1] || !rising && v > got[i-1] {
						t.Errorf("step %d: fade is not monotonic (%v -> %v)", i, got[i-1], v)
					}
				}
			}
		})
	}
}

func TestRunFadeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var last float64
	done := make(chan error, 1)
	go func() {
		done <- runFade(ctx, func(v float64) { last = v }, 0, 1, time.Second, 20)
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("fade did not stop after cancel")
	}
	if last >= 1 {
		t.Errorf("cancelled fade should not reach target, got %v", last)
	}
}

func TestRunFadeZeroDuration(t *testing.T) {
	var got []float64
	if err := runFade(context.Background(), func(v float64) { got = append(got, v) }, 0, 0.5, 0, 20); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 0.5 {
		t.Errorf("Expected a single snap to 0.5, got %v", got)
	}
}
