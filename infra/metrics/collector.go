package metrics

import (
	"context"

	"github.com/kilianp07/homecoming/core/events"
	"github.com/kilianp07/homecoming/core/logger"
	coremetrics "github.com/kilianp07/homecoming/core/metrics"
	"github.com/kilianp07/homecoming/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records job
// transitions. It stops when the context is canceled or the bus closes.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(coremetrics.JobRecorder)
	if !ok {
		return
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.JobEvent); ok {
					if err := rec.RecordJob(coremetrics.JobEvent{Action: string(e.Action), Phase: e.Job.Phase, Time: e.Time}); err != nil {
						log.Warnf("record job: %v", err)
					}
				}
			}
		}
	}()
}
