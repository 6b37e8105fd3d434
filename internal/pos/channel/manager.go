package channel

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Smarticus81/bevpro-sync/internal/platform/timeouts"
)

// Phase is the connection lifecycle phase.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseReconnecting
)

// String returns the UI-facing connectivity label for a phase.
func (p Phase) String() string {
	switch p {
	case PhaseConnecting, PhaseReconnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// State describes the connection manager's current lifecycle state.
// Attempt and NextDelay are populated while reconnecting. Terminal is set
// when automatic reconnection has been exhausted and a manual Connect is
// required.
type State struct {
	Phase     Phase
	Attempt   int
	NextDelay time.Duration
	Terminal  bool
}

// Event is one item delivered to the session dispatch queue: either a
// decoded envelope or a connection state transition, never both.
type Event struct {
	Envelope *Envelope
	State    *State
}

// Stream is one live event-channel connection.
type Stream interface {
	// Recv blocks until the next raw frame arrives.
	Recv() ([]byte, error)
	Close() error
}

// Dialer opens event-channel connections.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}

const defaultMaxAttempts = 5

// Options tunes the connection manager's reconnect behavior.
type Options struct {
	// Base is the initial reconnect delay. Defaults to timeouts.ReconnectBase.
	Base time.Duration
	// Cap is the maximum reconnect delay. Defaults to timeouts.ReconnectCap.
	Cap time.Duration
	// MaxAttempts bounds consecutive reconnect attempts before the manager
	// parks in a terminal disconnected state. Defaults to 5.
	MaxAttempts int
	// Logf receives recoverable-condition logs. Defaults to log.Printf.
	Logf func(string, ...any)
}

// Manager owns at most one live event-channel connection and re-establishes
// it after loss with capped exponential backoff. Decoded envelopes and
// state transitions are forwarded, one at a time in arrival order, into a
// single event queue consumed by the session dispatch loop. Codec failures
// are logged and dropped; they never close the channel.
type Manager struct {
	dialer      Dialer
	events      chan<- Event
	base        time.Duration
	cap         time.Duration
	maxAttempts int
	logf        func(string, ...any)

	kick chan struct{}

	mu    sync.Mutex
	state State
}

// NewManager creates a connection manager forwarding into events.
func NewManager(dialer Dialer, events chan<- Event, opts Options) *Manager {
	if opts.Base <= 0 {
		opts.Base = timeouts.ReconnectBase
	}
	if opts.Cap <= 0 {
		opts.Cap = timeouts.ReconnectCap
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	return &Manager{
		dialer:      dialer,
		events:      events,
		base:        opts.Base,
		cap:         opts.Cap,
		maxAttempts: opts.MaxAttempts,
		logf:        opts.Logf,
		kick:        make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect requests an immediate connection attempt. It is a no-op while a
// connection is live or being established. During a backoff wait it
// short-circuits the pending timer without touching the attempt counter;
// after a terminal disconnect it restarts the dial loop with a fresh
// counter.
func (m *Manager) Connect() {
	m.mu.Lock()
	phase := m.state.Phase
	m.mu.Unlock()
	if phase == PhaseConnected || phase == PhaseConnecting {
		return
	}
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Run drives the connection lifecycle until ctx ends. It returns nil on
// context cancellation; transport errors are absorbed into the reconnect
// state machine and never propagate.
func (m *Manager) Run(ctx context.Context) error {
	eb := m.newBackoff()
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		m.transition(ctx, State{Phase: PhaseConnecting})

		stream, err := m.dialer.Dial(ctx)
		if err == nil {
			attempt = 0
			eb.Reset()
			m.transition(ctx, State{Phase: PhaseConnected})
			err = m.consume(ctx, stream, &attempt)
			if ctx.Err() != nil {
				return nil
			}
			m.logf("event channel closed: %v", err)
		} else {
			if ctx.Err() != nil {
				return nil
			}
			m.logf("event channel dial: %v", err)
		}

		attempt++
		if attempt > m.maxAttempts {
			m.transition(ctx, State{Phase: PhaseDisconnected, Terminal: true})
			if !m.awaitKick(ctx) {
				return nil
			}
			attempt = 0
			eb.Reset()
			continue
		}

		delay := eb.NextBackOff()
		m.transition(ctx, State{Phase: PhaseReconnecting, Attempt: attempt, NextDelay: delay})
		if !m.waitRetry(ctx, delay) {
			return nil
		}
	}
}

func (m *Manager) newBackoff() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = m.base
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = m.cap
	eb.Reset()
	return eb
}

// consume reads and dispatches frames until the stream fails or ctx ends.
// A status "connected" frame resets the reconnect attempt counter.
func (m *Manager) consume(ctx context.Context, stream Stream, attempt *int) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-done:
		}
	}()
	defer stream.Close()

	for {
		raw, err := stream.Recv()
		if err != nil {
			return err
		}
		envelope, err := DecodeEnvelope(raw)
		if err != nil {
			m.logf("drop event frame: %v", err)
			continue
		}
		if envelope.Kind == KindStatus && envelope.Status == "connected" {
			*attempt = 0
		}
		if !m.deliver(ctx, Event{Envelope: &envelope}) {
			return ctx.Err()
		}
	}
}

func (m *Manager) transition(ctx context.Context, state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	m.deliver(ctx, Event{State: &state})
}

func (m *Manager) deliver(ctx context.Context, event Event) bool {
	select {
	case m.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) waitRetry(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-m.kick:
		return true
	case <-timer.C:
		return true
	}
}

func (m *Manager) awaitKick(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.kick:
		return true
	}
}
