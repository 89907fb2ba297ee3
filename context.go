package gate

import "context"

type ContextKey string

const (
	contextHostName   ContextKey = "gate.host"
	contextDeviceName ContextKey = "gate.device"
)

func hostContext(ctx context.Context, hostName string) context.Context {
	ctx = context.WithValue(ctx, contextHostName, hostName)
	return ctx
}

func deviceContext(ctx context.Context, devName string) context.Context {
	ctx = context.WithValue(ctx, contextDeviceName, devName)
	return ctx
}

func GetHostName(ctx context.Context) string {
	name, _ := ctx.Value(contextHostName).(string)
	return name
}

// GetDeviceName returns the device name a Host stage is running for,
// or "" outside a stage. Devices use it as the caller token on their
// gate sessions.
func GetDeviceName(ctx context.Context) string {
	name, _ := ctx.Value(contextDeviceName).(string)
	return name
}
