package gate

import "context"

// NoopDevice only carries dependencies, useful as a grouping node.
type NoopDevice struct {
	Device

	DependsOn []string
}

func (d *NoopDevice) Dependencies(context.Context) []string {
	return d.DependsOn
}
