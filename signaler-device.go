package gate

import (
	"context"
	"fmt"
	"time"
)

// SignalerDevice is a workload device: it opens a session on a
// published gate and emits Count units, one every Interval. It stands
// in for the producer side of the device (the write path).
type SignalerDevice struct {
	Device

	Path      string
	Count     int
	Interval  time.Duration
	DependsOn []string

	done chan struct{}
}

func (d *SignalerDevice) Dependencies(context.Context) []string {
	return d.DependsOn
}

func (d *SignalerDevice) Start(ctx context.Context, r *Registry) error {
	caller := GetDeviceName(ctx)
	if caller == "" {
		caller = "signaler"
	}

	sess, err := r.Open(d.Path, caller)
	if err != nil {
		return fmt.Errorf("starting signaler: %w", err)
	}

	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		defer sess.Close()

		var tick <-chan time.Time
		if d.Interval > 0 {
			ticker := time.NewTicker(d.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for range d.Count {
			if tick != nil {
				select {
				case <-tick:
				case <-ctx.Done():
					return
				}
			} else if ctx.Err() != nil {
				return
			}

			sess.Signal()
		}
	}()

	return nil
}

func (d *SignalerDevice) Wait(context.Context) error {
	if d.done != nil {
		<-d.done
	}
	return nil
}
