package gate

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type StageName string

const (
	StageInitialize StageName = "initialize"
	StageStart      StageName = "start"
	StageAwait      StageName = "await"
	StageFinalize   StageName = "finalize"
)

var (
	verbs = map[StageName][2]string{
		StageInitialize: {"initialize", "initializing"},
		StageStart:      {"start", "starting"},
		StageAwait:      {"complete", "awaiting"},
		StageFinalize:   {"finalize", "finalizing"},
	}
)

// runStage runs payload for every device in order, in parallel, gating
// each device on the given prerequisite map (dependencies for forward
// stages, dependents for finalize).
func (h *Host) runStage(
	ctx context.Context,
	stage StageName,
	order []string,
	prerequisites map[string][]string,
	ae *AggregatedError,
	payload func(context.Context, DeviceInterface) error,
) {
	log := h.getLogger()

	zf := []zap.Field{
		zap.String("gate.host", h.Name),
	}

	// failures gate only within the current stage: a device that failed
	// to start must still be finalized
	var se AggregatedError

	ready := make(map[string]chan struct{}, len(order))
	for _, n := range order {
		ready[n] = make(chan struct{})
	}

	wg := sync.WaitGroup{}
	for _, name := range order {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(ready[name])

			df := append(zf, zap.String("gate.device", name))

			log.Log(
				zapcore.DebugLevel,
				fmt.Sprintf("%s device: waiting for prerequisites: %s", verbs[stage][1], prerequisites[name]),
				df...,
			)

			for _, p := range prerequisites[name] {
				<-ready[p]
			}

			// some prerequisite failed
			if !se.Empty() {
				return
			}

			log.Log(zapcore.InfoLevel, fmt.Sprintf("%s device", verbs[stage][1]), df...)
			if err := payload(deviceContext(ctx, name), h.Devices[name]); err != nil {
				log.Log(zapcore.ErrorLevel, fmt.Sprintf("device failed to %s", verbs[stage][0]), append(df, zap.Error(err))...)
				se.Errorf("%s device: %q.%q: %w", verbs[stage][1], h.Name, name, err)
			}
		}()
	}
	wg.Wait()

	if err := se.Join(); err != nil {
		ae.Append(err)
	}
}
