package gate

import "context"

type DeviceInterface interface {
	// Dependencies reference dependency devices by names.
	Dependencies(context.Context) []string

	// Initialize is called in parallel (respecting dependencies) for
	// each requested device before any caller can open a gate. Devices
	// that own a gate construct and publish it here.
	Initialize(context.Context, *Registry) error

	// Start is called in parallel (respecting dependencies) for each
	// requested device after all devices initialized successfully.
	//
	// It's recommended not to block in Start; long-running work should
	// be spawned and collected in Wait.
	Start(context.Context, *Registry) error

	// Wait is called in parallel (respecting dependencies) for each
	// requested device after the host context is cancelled.
	//
	// Wait is called for each device, even if the device failed to
	// initialize or start.
	Wait(context.Context) error

	// Finalize is called in parallel (respecting reversed dependencies)
	// for each requested device after Wait; gate-owning devices
	// unpublish and close their gate here.
	//
	// Finalize is called with a different, non-cancelled context, for
	// each device, even if the device failed to initialize or start.
	Finalize(context.Context, *Registry) error
}

type Device struct {
	DeviceInterface
}

type Devices = map[string]DeviceInterface

var _ DeviceInterface = (*Device)(nil)

func (*Device) Dependencies(context.Context) []string {
	return nil
}

func (*Device) Initialize(context.Context, *Registry) error {
	return nil
}

func (*Device) Start(context.Context, *Registry) error {
	return nil
}

func (*Device) Wait(context.Context) error {
	return nil
}

func (*Device) Finalize(context.Context, *Registry) error {
	return nil
}

// ContextBoundDevice should cease as soon as given context is done.
// It shouldn't block in Start.
type ContextBoundDevice struct {
	Device
}

func (*ContextBoundDevice) Wait(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
