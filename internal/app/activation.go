package app

import (
	"context"
	"errors"
	"sync"

	"github.com/jsamuelsen/daily-quote-service/internal/domain"
)

// ErrActivationCanceled is returned by Wait when the activation was
// canceled before it finished and its result was discarded.
var ErrActivationCanceled = errors.New("daily quote activation canceled")

// DailyQuoteState is what an observer of an activation sees.
// It starts as {Quote: "", Loading: true}.
type DailyQuoteState struct {
	Quote   string
	Loading bool
}

// Activation is one asynchronous run of the daily quote lookup.
// Each caller that needs the quote starts its own activation; they do not
// coordinate with each other.
type Activation struct {
	mu     sync.RWMutex
	state  DailyQuoteState
	result *domain.DailyQuote
	done   chan struct{}
	cancel context.CancelFunc
}

// Activate starts a lookup in the background and returns immediately.
// Canceling ctx, or calling Cancel, discards the result.
func (s *DailyQuoteService) Activate(ctx context.Context) *Activation {
	ctx, cancel := context.WithCancel(ctx)

	a := &Activation{
		state:  DailyQuoteState{Loading: true},
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go a.run(ctx, s)

	return a
}

func (a *Activation) run(ctx context.Context, s *DailyQuoteService) {
	defer close(a.done)

	quote := s.Today(ctx)

	if ctx.Err() != nil {
		return
	}

	a.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = DailyQuoteState{Quote: quote.Text, Loading: false}
	a.result = quote
}

// State returns the current observable state.
func (a *Activation) State() DailyQuoteState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state
}

// Done is closed once the activation has finished or been discarded.
func (a *Activation) Done() <-chan struct{} {
	return a.done
}

// Cancel discards the activation. It is safe to call more than once and
// after completion.
func (a *Activation) Cancel() {
	a.cancel()
}

// Wait blocks until the activation finishes or ctx ends.
func (a *Activation) Wait(ctx context.Context) (*domain.DailyQuote, error) {
	select {
	case <-a.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.result == nil {
		return nil, ErrActivationCanceled
	}

	return a.result, nil
}
