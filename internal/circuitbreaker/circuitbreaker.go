// Package circuitbreaker guards calls to the mail gateway. After enough
// consecutive failures the breaker opens and calls fail fast until the
// reset timeout elapses; a half-open probe then decides whether to close.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrOpen = errors.New("circuit breaker is open")

type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mutex       sync.Mutex
	state       State
	failures    int
	probes      int
	lastFailure time.Time

	logger *logrus.Logger
}

func New(name string, maxFailures int, resetTimeout time.Duration, logger *logrus.Logger) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	return &Breaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		logger:       logger,
	}
}

// Execute runs fn unless the breaker is open. In half-open state only one
// probe is allowed at a time.
func (b *Breaker) Execute(fn func() error) error {
	b.mutex.Lock()

	if b.state == StateOpen {
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.setState(StateHalfOpen)
			b.probes = 0
		} else {
			b.mutex.Unlock()
			return ErrOpen
		}
	}

	if b.state == StateHalfOpen {
		if b.probes >= 1 {
			b.mutex.Unlock()
			return ErrOpen
		}
		b.probes++
	}
	b.mutex.Unlock()

	err := fn()

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == StateHalfOpen || (b.state == StateClosed && b.failures >= b.maxFailures) {
			b.setState(StateOpen)
		}
		return err
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.setState(StateClosed)
	}
	return nil
}

func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

func (b *Breaker) setState(newState State) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState

	b.logger.WithFields(logrus.Fields{
		"circuit_breaker": b.name,
		"from_state":      oldState.String(),
		"to_state":        newState.String(),
	}).Info("Circuit breaker state changed")
}
