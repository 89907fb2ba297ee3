package gate

import (
	"context"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stevenle/topsort/v2"
)

type Topology struct {
	RequestedDeviceNames      []string
	Graph                     *topsort.Graph[string]
	OrderedDeviceNames        []string
	ReverseOrderedDeviceNames []string
	DirectDependencies        map[string][]string
	FullDependencies          map[string][]string
	FullDependents            map[string][]string
}

func (h *Host) BuildTopology(ctx context.Context, requested ...string) (*Topology, error) {
	t := &Topology{
		RequestedDeviceNames: requested,
		Graph:                topsort.NewGraph[string](),
		DirectDependencies:   make(map[string][]string),
		FullDependencies:     make(map[string][]string),
		FullDependents:       make(map[string][]string),
	}

	// all devices that are required to run `requested`
	resolved := make([]string, 0, len(requested))
	resolved = append(resolved, requested...)

	var finished bool
	for !finished {
		finished = true

		for _, name := range resolved {
			if _, ok := t.DirectDependencies[name]; ok {
				continue
			}

			device, ok := h.Devices[name]
			if !ok {
				return nil, fmt.Errorf("device not registered: %q", name)
			}

			t.DirectDependencies[name] = device.Dependencies(ctx)
			for _, d := range t.DirectDependencies[name] {
				if _, ok := t.DirectDependencies[d]; ok {
					continue
				}

				finished = false
				resolved = append(resolved, d)
			}
		}
	}

	resolved = mapset.NewSet(resolved...).ToSlice()
	slices.Sort(resolved)

	for _, name := range resolved {
		t.Graph.AddNode(name)
	}

	for m, deps := range t.DirectDependencies {
		for _, d := range deps {
			t.Graph.AddEdge(m, d)
		}
	}

	t.OrderedDeviceNames = make([]string, 0, len(resolved))
	accounted := mapset.NewSetWithSize[string](len(resolved))

	for _, root := range resolved {
		deps, err := t.Graph.TopSort(root)
		if err != nil {
			return nil, fmt.Errorf("sorting dependencies of %q: %w", root, err)
		}

		// everything before the root in its own sort is a transitive
		// dependency
		t.FullDependencies[root] = deps[:len(deps)-1]
		for _, d := range t.FullDependencies[root] {
			t.FullDependents[d] = append(t.FullDependents[d], root)
		}

		for _, d := range deps {
			if !accounted.Contains(d) {
				t.OrderedDeviceNames = append(t.OrderedDeviceNames, d)
				accounted.Add(d)
			}
		}
	}

	t.ReverseOrderedDeviceNames = make([]string, len(t.OrderedDeviceNames))
	copy(t.ReverseOrderedDeviceNames, t.OrderedDeviceNames)
	slices.Reverse(t.ReverseOrderedDeviceNames)

	return t, nil
}
