package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CompletionGate is a completion device: Signal banks one indivisible
// unit (or releases the earliest blocked waiter), Wait consumes exactly
// one unit, blocking until one is available.
//
// A gate is created once by its host, published under a path-like name
// and torn down on shutdown. Callers bind to it with Open and interact
// through the returned Session. Waiters blocked in Wait are released
// strictly in arrival order, one per signalled unit; units signalled
// with no waiter present stay banked for future Wait calls.
type CompletionGate struct {
	name   string
	logger Logger

	mu       sync.Mutex
	closed   bool
	pending  int
	waiters  []*waiter
	sessions mapset.Set[uint64]
	lastID   uint64
}

// waiter is one blocked Wait call. Units are delivered with a
// non-blocking send into ch (cap 1), so Signal never blocks even when
// the waiter is concurrently giving up.
type waiter struct {
	ch chan struct{}
}

func NewCompletionGate(name string, opts ...GateOption) *CompletionGate {
	g := &CompletionGate{
		name:     name,
		sessions: mapset.NewSet[uint64](),
	}

	for _, o := range opts {
		o(g)
	}

	return g
}

func (g *CompletionGate) Name() string {
	return g.name
}

// Open binds a caller to the gate. The caller token is opaque and used
// only for logging. Open never fails; opening a closed gate is a host
// defect and panics.
func (g *CompletionGate) Open(caller string) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		panic(fmt.Sprintf("gate: Open on closed gate %q", g.name))
	}

	g.lastID++
	s := &Session{
		gate:   g,
		id:     g.lastID,
		caller: caller,
	}
	g.sessions.Add(s.id)

	g.getLogger().Log(
		zapcore.DebugLevel,
		"session opened",
		zap.String("gate.name", g.name),
		zap.String("gate.caller", caller),
		zap.Uint64("gate.session", s.id),
	)

	return s
}

// Pending reports the number of banked units. It is a diagnostic
// snapshot, not a synchronization point.
func (g *CompletionGate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// Waiters reports the number of callers currently blocked in Wait.
// Like Pending it is a diagnostic snapshot.
func (g *CompletionGate) Waiters() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// Close tears the gate down. Blocked waiters at close time are a host
// defect and are reported as an error; banked units and sessions that
// were never released are logged and discarded.
func (g *CompletionGate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	log := g.getLogger()
	zf := []zap.Field{zap.String("gate.name", g.name)}

	if g.pending > 0 {
		log.Log(zapcore.WarnLevel, "discarding banked units", append(zf, zap.Int("gate.pending", g.pending))...)
	}
	if !g.sessions.IsEmpty() {
		log.Log(zapcore.WarnLevel, "sessions were not released", append(zf, zap.Int("gate.sessions", g.sessions.Cardinality()))...)
	}

	if n := len(g.waiters); n > 0 {
		return fmt.Errorf("closing gate %q: %d callers still blocked", g.name, n)
	}

	return nil
}

func (g *CompletionGate) wait(ctx context.Context, caller string) error {
	log := g.getLogger()
	zf := []zap.Field{
		zap.String("gate.name", g.name),
		zap.String("gate.caller", caller),
	}

	g.mu.Lock()

	if g.closed {
		g.mu.Unlock()
		panic(fmt.Sprintf("gate: Wait on closed gate %q", g.name))
	}

	if g.pending > 0 {
		g.pending--
		if g.pending < 0 {
			panic("gate: negative pending count")
		}
		g.mu.Unlock()
		return nil
	}

	w := &waiter{ch: make(chan struct{}, 1)}
	g.waiters = append(g.waiters, w)
	g.mu.Unlock()

	log.Log(zapcore.DebugLevel, "caller is going to sleep", zf...)

	select {
	case <-w.ch:
		log.Log(zapcore.InfoLevel, "caller awoken", zf...)
		return nil

	case <-ctx.Done():
	}

	// Cancelled. A concurrent Signal may have dequeued this waiter
	// already; then the unit sits in w.ch and is consumed here rather
	// than lost.
	g.mu.Lock()
	for i, q := range g.waiters {
		if q == w {
			g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
			g.mu.Unlock()
			log.Log(zapcore.InfoLevel, "wait interrupted", append(zf, zap.Error(ctx.Err()))...)
			return fmt.Errorf("awaiting completion on %q: %w", g.name, errors.Join(ErrWaitInterrupted, ctx.Err()))
		}
	}
	g.mu.Unlock()

	<-w.ch
	log.Log(zapcore.InfoLevel, "caller awoken", zf...)
	return nil
}

func (g *CompletionGate) signal(caller string) int {
	log := g.getLogger()
	zf := []zap.Field{
		zap.String("gate.name", g.name),
		zap.String("gate.caller", caller),
	}

	g.mu.Lock()

	if g.closed {
		g.mu.Unlock()
		panic(fmt.Sprintf("gate: Signal on closed gate %q", g.name))
	}

	if len(g.waiters) > 0 {
		w := g.waiters[0]
		g.waiters = g.waiters[1:]
		w.ch <- struct{}{}
		g.mu.Unlock()

		log.Log(zapcore.DebugLevel, "released earliest waiter", zf...)
		return 1
	}

	g.pending++
	banked := g.pending
	g.mu.Unlock()

	log.Log(zapcore.DebugLevel, "banked one unit", append(zf, zap.Int("gate.pending", banked))...)
	return 1
}

func (g *CompletionGate) release(s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sessions.Remove(s.id)

	g.getLogger().Log(
		zapcore.DebugLevel,
		"session released",
		zap.String("gate.name", g.name),
		zap.String("gate.caller", s.caller),
		zap.Uint64("gate.session", s.id),
	)
}

func (g *CompletionGate) getLogger() Logger {
	if g.logger == nil {
		return fallbackLogger{}
	}
	return g.logger
}
