package engine

import (
	"fmt"
	"sync"
	"time"
)

// legalTransitions encodes the order state machine. A retry re-enters
// StateQuoting from StateSubmitting; everything else moves forward only.
var legalTransitions = map[OrderState][]OrderState{
	StatePending:    {StateQuoting, StateFailed},
	StateQuoting:    {StateBuilding, StateFailed},
	StateBuilding:   {StateSubmitting, StateQuoting, StateFailed},
	StateSubmitting: {StateConfirmed, StateQuoting, StateFailed},
	StateConfirmed:  {},
	StateFailed:     {},
}

// order tracks one logical trade across its retry attempts. Terminal states
// are sticky: once confirmed or failed the order never moves again.
type order struct {
	mu       sync.Mutex
	id       string
	state    OrderState
	attempts []Attempt
	started  time.Time
}

func newOrder() *order {
	return &order{
		id:      fmt.Sprintf("ord_%d", time.Now().UnixNano()),
		state:   StatePending,
		started: time.Now(),
	}
}

func (o *order) transition(to OrderState) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, allowed := range legalTransitions[o.state] {
		if allowed == to {
			o.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal order transition %s -> %s", o.state, to)
}

func (o *order) record(a Attempt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, a)
}

func (o *order) snapshot() (OrderState, []Attempt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Attempt, len(o.attempts))
	copy(out, o.attempts)
	return o.state, out
}
