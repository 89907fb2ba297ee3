package gate_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	gate "github.com/roboslone/go-gate"
	"github.com/stretchr/testify/require"
)

func TestBuildTopology(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		// a - b - a
		host := &gate.Host{
			Name: t.Name(),
			Devices: gate.Devices{
				"a": NewTestDevice("b"),
				"b": NewTestDevice("a"),
			},
		}

		_, err := host.BuildTopology(t.Context(), "a")
		require.ErrorContains(t, err, "Cycle error")
	})

	t.Run("self-dependency", func(t *testing.T) {
		// a - a
		host := &gate.Host{
			Name: t.Name(),
			Devices: gate.Devices{
				"a": NewTestDevice("a"),
			},
		}

		_, err := host.BuildTopology(t.Context(), "a")
		require.ErrorContains(t, err, "Cycle error")
	})

	t.Run("unknown device", func(t *testing.T) {
		host := &gate.Host{
			Name: t.Name(),
			Devices: gate.Devices{
				"a": NewTestDevice("ghost"),
			},
		}

		_, err := host.BuildTopology(t.Context(), "a")
		require.ErrorContains(t, err, "device not registered")
	})

	t.Run("linear", func(t *testing.T) {
		// a - b - c
		host := &gate.Host{
			Name: t.Name(),
			Devices: gate.Devices{
				"a": NewTestDevice("b"),
				"b": NewTestDevice("c"),
				"c": NewTestDevice(),
			},
		}

		topology, err := host.BuildTopology(t.Context(), "a")
		require.NoError(t, err)
		require.EqualValues(t, []string{"c", "b", "a"}, topology.OrderedDeviceNames)
		require.EqualValues(t, []string{"a", "b", "c"}, topology.ReverseOrderedDeviceNames)
		require.EqualValues(t, []string{"c", "b"}, topology.FullDependencies["a"])
	})

	t.Run("rhombus", func(t *testing.T) {
		//     b
		//   /  \
		// a     d
		//  \   /
		//    c
		host := &gate.Host{
			Name: t.Name(),
			Devices: gate.Devices{
				"a": NewTestDevice(),
				"b": NewTestDevice("a"),
				"c": NewTestDevice("a"),
				"d": NewTestDevice("b", "c"),
			},
		}

		topology, err := host.BuildTopology(t.Context(), "d")
		require.NoError(t, err)
		require.EqualValues(t, []string{"a", "b", "c", "d"}, topology.OrderedDeviceNames)
	})

	t.Run("composite", func(t *testing.T) {
		//    c - d         h
		//  /      \      /  \
		// a        e - f    i - j
		//  \     /      \  /
		//     b          g
		host := &gate.Host{
			Name: t.Name(),
			Devices: gate.Devices{
				"a": NewTestDevice(),
				"b": NewTestDevice("a"),
				"c": NewTestDevice("a"),
				"d": NewTestDevice("c"),
				"e": NewTestDevice("b", "d"),
				"f": NewTestDevice("e"),
				"g": NewTestDevice("f"),
				"h": NewTestDevice("f"),
				"i": NewTestDevice("h", "g"),
				"j": NewTestDevice("i"),
			},
		}

		topology, err := host.BuildTopology(t.Context(), "j")
		require.NoError(t, err)
		require.EqualValues(t, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}, topology.OrderedDeviceNames)
	})
}

func TestHostLifecycle(t *testing.T) {
	const (
		workers = 3
		units   = 2
	)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var consumed atomic.Int32

	gateDevice := &gate.GateDevice{Path: "/dev/completion"}

	host := &gate.Host{
		Name: t.Name(),
		Devices: gate.Devices{
			"gate": gateDevice,
			"signaler": &gate.SignalerDevice{
				Path:      "/dev/completion",
				Count:     workers * units,
				DependsOn: []string{"gate"},
			},
			"waiter": &gate.WaiterDevice{
				Path:      "/dev/completion",
				Workers:   workers,
				Units:     units,
				DependsOn: []string{"gate"},
				Report: func(int, time.Duration) {
					consumed.Add(1)
				},
				OnDrained: cancel,
			},
		},
	}

	require.NoError(t, host.Run(ctx, "signaler", "waiter"))
	require.EqualValues(t, workers*units, consumed.Load())

	// the gate was unpublished and closed during finalize
	_, ok := host.Registry.Lookup("/dev/completion")
	require.False(t, ok)
	require.Panics(t, func() { gateDevice.Gate().Open("late") })
}

func TestInitializeBeforeOpen(t *testing.T) {
	// the start stage begins only after every device initialized, so a
	// start-stage Open succeeds even without an explicit dependency on
	// the gate device.
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	opener := NewTestDevice()
	opener.onStart = func(ctx context.Context, r *gate.Registry) error {
		s, err := r.Open("/dev/completion", "opener")
		if err != nil {
			return err
		}
		s.Close()
		return nil
	}

	host := &gate.Host{
		Name: t.Name(),
		Devices: gate.Devices{
			"gate":   &gate.GateDevice{Path: "/dev/completion"},
			"opener": opener,
		},
	}

	require.NoError(t, host.Run(ctx, "gate", "opener"))
}

func TestStageOrdering(t *testing.T) {
	rec := &stageRecorder{}

	device := func(name string, deps ...string) *TestDevice {
		d := NewTestDevice(deps...)
		d.onInitialize = func(context.Context, *gate.Registry) error {
			rec.mark(name + ":initialize")
			return nil
		}
		d.onFinalize = func(context.Context, *gate.Registry) error {
			rec.mark(name + ":finalize")
			return nil
		}
		return d
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	host := &gate.Host{
		Name: t.Name(),
		Devices: gate.Devices{
			"a": device("a"),
			"b": device("b", "a"),
		},
	}

	require.NoError(t, host.Run(ctx, "b"))

	// initialize respects dependencies, finalize reverses them
	require.Less(t, rec.index("a:initialize"), rec.index("b:initialize"))
	require.Less(t, rec.index("b:finalize"), rec.index("a:finalize"))
}

func TestStageFailures(t *testing.T) {
	t.Run("initialize failure skips dependents and start", func(t *testing.T) {
		rec := &stageRecorder{}
		boom := errors.New("boom")

		broken := NewTestDevice()
		broken.onInitialize = func(context.Context, *gate.Registry) error {
			return boom
		}

		dependent := NewTestDevice("broken")
		dependent.onInitialize = func(context.Context, *gate.Registry) error {
			rec.mark("dependent:initialize")
			return nil
		}
		dependent.onStart = func(context.Context, *gate.Registry) error {
			rec.mark("dependent:start")
			return nil
		}
		dependent.onFinalize = func(context.Context, *gate.Registry) error {
			rec.mark("dependent:finalize")
			return nil
		}

		host := &gate.Host{
			Name: t.Name(),
			Devices: gate.Devices{
				"broken":    broken,
				"dependent": dependent,
			},
		}

		err := host.Run(t.Context(), "dependent")
		require.ErrorIs(t, err, boom)

		require.Equal(t, -1, rec.index("dependent:initialize"))
		require.Equal(t, -1, rec.index("dependent:start"))

		// finalize still runs for every device
		require.NotEqual(t, -1, rec.index("dependent:finalize"))
	})

	t.Run("start failure still finalizes the gate", func(t *testing.T) {
		broken := NewTestDevice("gate")
		broken.onStart = func(context.Context, *gate.Registry) error {
			return fmt.Errorf("no luck")
		}

		host := &gate.Host{
			Name: t.Name(),
			Devices: gate.Devices{
				"gate":   &gate.GateDevice{Path: "/dev/completion"},
				"broken": broken,
			},
		}

		err := host.Run(t.Context(), "broken")
		require.ErrorContains(t, err, "no luck")

		_, ok := host.Registry.Lookup("/dev/completion")
		require.False(t, ok)
	})
}
