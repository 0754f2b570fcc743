// Package confirm turns a destructive request into a two-step exchange:
// the first call registers a prompt, the second answers it.
//
// Each owner has one Dialog. A Dialog is either idle or awaiting an answer
// and holds at most one pending continuation, which runs exactly once.
package confirm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is where a Dialog is in its prompt cycle.
type State int

const (
	Idle State = iota
	Awaiting
)

func (s State) String() string {
	if s == Awaiting {
		return "awaiting"
	}
	return "idle"
}

var (
	ErrPending  = errors.New("another confirmation is pending")
	ErrNoPrompt = errors.New("no matching confirmation")
)

// Continuation receives the answer. A cancelled or expired prompt passes false.
type Continuation func(ctx context.Context, confirmed bool) (any, error)

// Prompt is what the client shows the user. ID must be echoed back with the answer.
type Prompt struct {
	ID        string    `json:"confirmationId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Dialog holds at most one pending prompt. It is safe for concurrent use.
type Dialog struct {
	mu      sync.Mutex
	state   State
	prompt  Prompt
	pending Continuation
}

// State returns the current state.
func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Pending returns the prompt currently awaiting an answer.
func (d *Dialog) Pending() (Prompt, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prompt, d.state == Awaiting
}

// Ask moves the dialog from idle to awaiting.
func (d *Dialog) Ask(p Prompt, cont Continuation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Awaiting {
		return ErrPending
	}
	d.state = Awaiting
	d.prompt = p
	d.pending = cont
	return nil
}

// Resolve answers the pending prompt with the given id and runs its continuation.
func (d *Dialog) Resolve(ctx context.Context, id string, confirmed bool) (any, error) {
	cont, err := d.take(func(p Prompt) bool { return p.ID == id })
	if err != nil {
		return nil, err
	}
	return cont(ctx, confirmed)
}

// Expire cancels the pending prompt if it expired before now.
func (d *Dialog) Expire(ctx context.Context, now time.Time) bool {
	cont, err := d.take(func(p Prompt) bool { return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) })
	if err != nil {
		return false
	}
	_, _ = cont(ctx, false)
	return true
}

// take hands out the continuation at most once and returns the dialog to idle.
func (d *Dialog) take(match func(Prompt) bool) (Continuation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Awaiting || !match(d.prompt) {
		return nil, ErrNoPrompt
	}
	cont := d.pending
	d.state = Idle
	d.prompt = Prompt{}
	d.pending = nil
	return cont, nil
}
