package httpapi

import (
	"sync"
	"sync/atomic"
)

// TurnRegistry tracks in-flight turn requests and supports graceful
// draining. When draining is enabled new turns are rejected while in-flight
// turns finish and save their session.
//
// mu makes the draining check and wg.Add one step in Add, so no Add can
// slip in between StartDraining and Wait.
type TurnRegistry struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	count    atomic.Int64
}

func NewTurnRegistry() *TurnRegistry {
	return &TurnRegistry{}
}

// Add registers a new turn. Returns false if the registry is draining.
func (tr *TurnRegistry) Add() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.draining {
		return false
	}
	tr.wg.Add(1)
	tr.count.Add(1)
	return true
}

// Done marks a turn as completed. Must be called exactly once per successful Add.
func (tr *TurnRegistry) Done() {
	tr.count.Add(-1)
	tr.wg.Done()
}

// StartDraining makes every later Add return false.
func (tr *TurnRegistry) StartDraining() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.draining = true
}

func (tr *TurnRegistry) IsDraining() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.draining
}

// ActiveCount returns the number of turns in flight.
func (tr *TurnRegistry) ActiveCount() int64 {
	return tr.count.Load()
}

// Wait blocks until all active turns have completed.
func (tr *TurnRegistry) Wait() {
	tr.wg.Wait()
}
