package ws

import (
	"math/rand"
	"time"

	"meshpeer/internal/config"
)

// NextBackoffDelay returns the delay before reconnect attempt number
// attempt (0-based), following cfg's initial delay, multiplier, and
// cap, with optional full jitter. A caller driving its own reconnect
// loop on top of Client.Connect uses this between failed attempts;
// Connect itself makes exactly one attempt per call.
func NextBackoffDelay(attempt int, cfg config.BackoffConfig) time.Duration {
	base := float64(cfg.InitialDelayMS)
	for i := 0; i < attempt; i++ {
		base *= cfg.Multiplier
		if base >= float64(cfg.MaxDelayMS) {
			base = float64(cfg.MaxDelayMS)
			break
		}
	}

	delay := time.Duration(base) * time.Millisecond
	if cfg.Jitter {
		delay = time.Duration(rand.Int63n(int64(delay) + 1))
	}
	return delay
}
