package negotiation

import (
	"context"
	"log"
	"time"
)

// StartSweeper runs the expiry sweep every SweepInterval until ctx is
// cancelled. Run it once per process next to the engine.
func StartSweeper(ctx context.Context, engine *Engine) {
	go func() {
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := engine.ExpireSweep(ctx)
				if err != nil {
					log.Printf("expiry sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("expiry sweep: expired %d counter offers", n)
				}
			}
		}
	}()
}
