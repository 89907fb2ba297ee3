package gate

type GateOption func(*CompletionGate)

func WithLogger(logger Logger) GateOption {
	return func(g *CompletionGate) {
		g.logger = logger
	}
}
