// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run polls immediately, then on every tick, and applies queued commands
// between cycles. One goroutine per climate. No overlap.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.publish(p.PollOnce())

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-p.commands:
			if err := p.Apply(cmd); err != nil {
				p.log.WithField("device", cmd.Device).Errorf("command %s=%q failed: %v", cmd.Attr, cmd.Payload, err)
				continue
			}
			// optimistic state, no read
			p.publish(p.report(p.now()))

		case <-ticker.C:
			p.publish(p.PollOnce())
		}
	}
}
