package gate

import (
	"context"
	"fmt"
)

// GateDevice owns the singleton CompletionGate: Initialize constructs
// it and publishes it under Path, Finalize unpublishes and closes it.
// Every caller-facing device should depend on the GateDevice so the
// gate is published before they open sessions.
type GateDevice struct {
	Device

	Path   string
	Logger Logger

	gate *CompletionGate
}

// Gate returns the owned gate, nil before Initialize.
func (d *GateDevice) Gate() *CompletionGate {
	return d.gate
}

func (d *GateDevice) Initialize(ctx context.Context, r *Registry) error {
	if d.gate != nil {
		return fmt.Errorf("initializing gate device: %q initialized twice", d.Path)
	}

	var opts []GateOption
	if d.Logger != nil {
		opts = append(opts, WithLogger(d.Logger))
	}

	d.gate = NewCompletionGate(d.Path, opts...)
	return r.Publish(d.Path, d.gate)
}

func (d *GateDevice) Finalize(ctx context.Context, r *Registry) error {
	if d.gate == nil {
		return nil
	}

	if _, err := r.Unpublish(d.Path); err != nil {
		return fmt.Errorf("finalizing gate device: %w", err)
	}

	return d.gate.Close()
}
