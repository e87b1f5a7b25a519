package audio

import (
	"context"
	"time"
)

// runFade linearly interpolates from -> to over d in steps ticks of d/steps.
// Intermediate values are clamped to the [from, to] range and the last tick
// snaps exactly to the target. Ticks are not caught up when delayed.
func runFade(ctx context.Context, set func(v float64), from, to float64, d time.Duration, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}

	interval := d / time.Duration(steps)
	if interval <= 0 {
		set(to)
		return nil
	}

	set(from)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if i == steps {
			set(to)
			break
		}
		v := from + (to-from)*float64(i)/float64(steps)
		set(min(max(v, lo), hi))
	}
	return nil
}
