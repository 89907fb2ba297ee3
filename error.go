package gate

import (
	"errors"
	"fmt"
	"sync"
)

// ErrWaitInterrupted reports that a blocked Wait was cancelled before a
// unit arrived. It is the only recoverable failure of the gate itself;
// it is surfaced to the caller and never retried internally. Match it
// with errors.Is; the returned error also carries the ctx.Err() cause.
var ErrWaitInterrupted = errors.New("wait interrupted")

// AggregatedError collects failures from concurrently running device
// stages.
type AggregatedError struct {
	lock   sync.RWMutex
	errors []error
}

func (a *AggregatedError) Errorf(format string, m ...any) {
	a.Append(fmt.Errorf(format, m...))
}

func (a *AggregatedError) Append(errs ...error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.errors = append(a.errors, errs...)
}

func (a *AggregatedError) Join() error {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return errors.Join(a.errors...)
}

func (a *AggregatedError) Empty() bool {
	return a.Join() == nil
}
