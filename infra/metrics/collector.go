package metrics

import (
	"context"
	"time"

	coremetrics "github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/relax"
	"github.com/kilianp07/oncall/internal/eventbus"
)

// StartStepCollector subscribes to the relaxation event bus and records a
// metric for every controller step. It returns a channel closed once the
// bus is closed or ctx is canceled.
func StartStepCollector(ctx context.Context, bus *eventbus.TypedBus[relax.StepEvent], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.StepRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordStep(coremetrics.StepEvent{
					RunID:    ev.RunID,
					Phase:    string(ev.Step.Phase),
					Action:   ev.Step.Action,
					Unit:     ev.Step.Unit,
					Status:   ev.Step.Status,
					Disabled: ev.Step.Disabled,
					Elapsed:  ev.Step.Elapsed,
					Time:     time.Now(),
				})
			}
		}
	}()
	return done
}
