package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// WaiterDevice is a workload device: Workers goroutines each open a
// session on a published gate and consume Units units, the consumer
// side of the device (the blocking read path).
type WaiterDevice struct {
	Device

	Path      string
	Workers   int
	Units     int
	DependsOn []string

	// Report, when set, is called after every consumed unit with the
	// worker index and the time spent blocked.
	Report func(worker int, waited time.Duration)

	// OnDrained, when set, is called once after every worker consumed
	// its units. Typically wired to the host context's cancel func.
	OnDrained func()

	eg *errgroup.Group
}

func (d *WaiterDevice) Dependencies(context.Context) []string {
	return d.DependsOn
}

func (d *WaiterDevice) Start(ctx context.Context, r *Registry) error {
	caller := GetDeviceName(ctx)
	if caller == "" {
		caller = "waiter"
	}

	eg, wctx := errgroup.WithContext(ctx)
	d.eg = eg

	for w := range d.Workers {
		eg.Go(func() error {
			sess, err := r.Open(d.Path, fmt.Sprintf("%s-%d", caller, w))
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			defer sess.Close()

			for range d.Units {
				start := time.Now()

				if err := sess.Wait(wctx); err != nil {
					if errors.Is(err, ErrWaitInterrupted) {
						// shutdown requested mid-wait
						return nil
					}
					return fmt.Errorf("worker %d: %w", w, err)
				}

				if d.Report != nil {
					d.Report(w, time.Since(start))
				}
			}

			return nil
		})
	}

	if d.OnDrained != nil {
		go func() {
			if eg.Wait() == nil {
				d.OnDrained()
			}
		}()
	}

	return nil
}

func (d *WaiterDevice) Wait(context.Context) error {
	if d.eg == nil {
		return nil
	}
	return d.eg.Wait()
}
