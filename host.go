package gate

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Host drives the lifecycle of a set of named devices against a shared
// Registry: initialize and start them in dependency order, block until
// the context ends, then await and finalize them. The gate itself
// knows nothing about the Host; it only sees Open/Wait/Signal calls.
type Host struct {
	Name     string
	Logger   Logger
	Registry *Registry
	Devices  Devices
}

func (h *Host) Run(ctx context.Context, devices ...string) error {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(ctx)
	defer cancel()

	ctx = hostContext(ctx, h.Name)

	zf := []zap.Field{
		zap.String("gate.host", h.Name),
	}

	log := h.getLogger()
	log.Log(zapcore.InfoLevel, "starting host", zf...)

	registry := h.Registry
	if registry == nil {
		registry = NewRegistry()
		h.Registry = registry
	}

	topology, err := h.BuildTopology(ctx, devices...)
	if err != nil {
		return fmt.Errorf("building topology: %q: %s: %w", h.Name, devices, err)
	}

	var ae AggregatedError

	h.runStage(
		ctx,
		StageInitialize,
		topology.OrderedDeviceNames,
		topology.FullDependencies,
		&ae,
		func(ctx context.Context, d DeviceInterface) error {
			return d.Initialize(ctx, registry)
		},
	)

	if ae.Empty() {
		h.runStage(
			ctx,
			StageStart,
			topology.OrderedDeviceNames,
			topology.FullDependencies,
			&ae,
			func(ctx context.Context, d DeviceInterface) error {
				return d.Start(ctx, registry)
			},
		)
	}

	if !ae.Empty() {
		// some device failed to either initialize or start
		log.Log(zapcore.InfoLevel, "cancelling host context", zf...)
		cancel()
	}

	<-ctx.Done()

	tearDownCtx := hostContext(context.Background(), h.Name)

	h.runStage(
		tearDownCtx,
		StageAwait,
		topology.OrderedDeviceNames,
		topology.FullDependencies,
		&ae,
		func(ctx context.Context, d DeviceInterface) error {
			return d.Wait(ctx)
		},
	)

	// tear down in reverse: a device finalizes only after everything
	// depending on it has
	h.runStage(
		tearDownCtx,
		StageFinalize,
		topology.ReverseOrderedDeviceNames,
		topology.FullDependents,
		&ae,
		func(ctx context.Context, d DeviceInterface) error {
			return d.Finalize(ctx, registry)
		},
	)

	log.Log(zapcore.InfoLevel, "host stopped", zf...)

	return ae.Join()
}

func (h *Host) getLogger() Logger {
	if h.Logger == nil {
		return fallbackLogger{}
	}
	return h.Logger
}
