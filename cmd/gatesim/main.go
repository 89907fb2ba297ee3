package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	gate "github.com/roboslone/go-gate"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type SimConfig struct {
	Path      string                 `yaml:"path"`
	Signalers map[string]WorkloadCfg `yaml:"signalers"`
	Waiters   map[string]WorkloadCfg `yaml:"waiters"`
}

type WorkloadCfg struct {
	Count    int    `yaml:"count"`
	Workers  int    `yaml:"workers"`
	Units    int    `yaml:"units"`
	Interval string `yaml:"interval"`
}

func (w WorkloadCfg) ParseInterval() (time.Duration, error) {
	if w.Interval == "" {
		return 0, nil
	}
	return time.ParseDuration(w.Interval)
}

func (cfg *SimConfig) PrintUsage() {
	result := strings.Builder{}

	result.WriteString(fmt.Sprintf("\nGate: %s\n", cfg.Path))

	result.WriteString("\nSignalers:\n")
	for name, w := range cfg.Signalers {
		result.WriteString(fmt.Sprintf("\t%s\n", name))
		result.WriteString(color.BlackString("\t\t%d units every %s\n", w.Count, w.Interval))
	}

	result.WriteString("\nWaiters:\n")
	for name, w := range cfg.Waiters {
		result.WriteString(fmt.Sprintf("\t%s\n", name))
		result.WriteString(color.BlackString("\t\t%d workers x %d units\n", w.Workers, w.Units))
	}

	fmt.Println(result.String())
}

func main() {
	fs := flag.NewFlagSet("gatesim", flag.ContinueOnError)

	configPath := fs.String("c", ".gatesim.yaml", "Path to config file")
	list := fs.Bool("l", false, "List configured workloads and exit")
	verbose := fs.Bool("v", false, "Debug logging")

	flagErr := fs.Parse(os.Args[1:])
	if errors.Is(flagErr, flag.ErrHelp) {
		return
	}
	if flagErr != nil {
		log.Fatalf("parsing options: %s", flagErr)
	}

	setupLogging(*verbose)

	cfg, err := ParseConfig(*configPath)
	if err != nil {
		log.Fatalf("reading config: %s", err)
	}
	if *list {
		cfg.PrintUsage()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	devices := gate.Devices{
		"gate": &gate.GateDevice{Path: cfg.Path},
	}

	requested := make([]string, 0, len(cfg.Signalers)+len(cfg.Waiters))

	for name, w := range cfg.Signalers {
		interval, err := w.ParseInterval()
		if err != nil {
			log.Fatalf("signaler %q: %s", name, err)
		}

		devices[name] = &gate.SignalerDevice{
			Path:      cfg.Path,
			Count:     w.Count,
			Interval:  interval,
			DependsOn: []string{"gate"},
		}
		requested = append(requested, name)
	}

	// the sim stops once every waiter drained its units (or on SIGINT)
	var drained atomic.Int32
	total := int32(len(cfg.Waiters))

	for name, w := range cfg.Waiters {
		devices[name] = &gate.WaiterDevice{
			Path:      cfg.Path,
			Workers:   w.Workers,
			Units:     w.Units,
			DependsOn: []string{"gate"},
			Report: func(worker int, waited time.Duration) {
				fmt.Printf(
					"%s %s/%d %s\n",
					color.GreenString("✓"),
					name,
					worker,
					color.BlackString(waited.Round(time.Millisecond).String()),
				)
			},
			OnDrained: func() {
				if drained.Add(1) == total {
					cancel()
				}
			},
		}
		requested = append(requested, name)
	}

	host := &gate.Host{
		Name:    "gatesim",
		Devices: devices,
	}

	if err := host.Run(ctx, requested...); err != nil {
		color.Red(err.Error())
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(gate.NewPrefixedWriter(os.Stderr, "gatesim | ")),
		level,
	)

	zap.ReplaceGlobals(zap.New(core))
}

func ParseConfig(path string) (*SimConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	cfg := &SimConfig{}
	if err = yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if cfg.Path == "" {
		cfg.Path = "/dev/completion"
	}

	return cfg, nil
}
