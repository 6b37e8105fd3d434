package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeStream struct {
	frames    chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeStream(frames ...[]byte) *fakeStream {
	s := &fakeStream{
		frames: make(chan []byte, len(frames)),
		closed: make(chan struct{}),
	}
	for _, frame := range frames {
		s.frames <- frame
	}
	return s
}

func (s *fakeStream) Recv() ([]byte, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.closed:
		return nil, errors.New("stream closed")
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

type fakeDialer struct {
	mu     sync.Mutex
	stream Stream
	refuse bool
}

func (d *fakeDialer) Dial(context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refuse {
		return nil, errors.New("dial refused")
	}
	return d.stream, nil
}

func (d *fakeDialer) setRefuse(refuse bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refuse = refuse
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func nextState(t *testing.T, events <-chan Event) State {
	t.Helper()
	event := nextEvent(t, events)
	if event.State == nil {
		t.Fatalf("expected state event, got %+v", event)
	}
	return *event.State
}

func TestManagerBackoffSchedule(t *testing.T) {
	m := NewManager(&fakeDialer{}, nil, Options{Base: time.Second, Cap: 10 * time.Second})
	eb := m.newBackoff()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, expected := range want {
		if got := eb.NextBackOff(); got != expected {
			t.Fatalf("delay %d: expected %v, got %v", i+1, expected, got)
		}
	}
}

func TestManagerDefaults(t *testing.T) {
	m := NewManager(&fakeDialer{}, nil, Options{})
	if m.maxAttempts != 5 {
		t.Fatalf("expected 5 reconnect attempts by default, got %d", m.maxAttempts)
	}
	if m.base != time.Second || m.cap != 10*time.Second {
		t.Fatalf("unexpected default delays base=%v cap=%v", m.base, m.cap)
	}
}

func TestManagerForwardsFramesInOrder(t *testing.T) {
	stream := newFakeStream(
		[]byte(`{"type":"status","data":{"status":"connected"}}`),
		[]byte(`not json at all`),
		[]byte(`{"type":"INVENTORY_UPDATE","data":{"drinkId":"3","newInventory":7}}`),
	)
	dialer := &fakeDialer{stream: stream}
	events := make(chan Event, 16)
	logs := make(chan string, 16)
	logf := func(format string, args ...any) {
		select {
		case logs <- fmt.Sprintf(format, args...):
		default:
		}
	}

	m := NewManager(dialer, events, Options{Logf: logf})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	if state := nextState(t, events); state.Phase != PhaseConnecting {
		t.Fatalf("expected connecting, got %+v", state)
	}
	if state := nextState(t, events); state.Phase != PhaseConnected {
		t.Fatalf("expected connected, got %+v", state)
	}

	first := nextEvent(t, events)
	if first.Envelope == nil || first.Envelope.Kind != KindStatus {
		t.Fatalf("expected status envelope first, got %+v", first)
	}
	second := nextEvent(t, events)
	if second.Envelope == nil || second.Envelope.Kind != KindInventoryChange {
		t.Fatalf("expected inventory envelope second, got %+v", second)
	}

	// The malformed frame is dropped with a log, not a disconnect.
	select {
	case line := <-logs:
		if line == "" {
			t.Fatal("expected drop log line")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for drop log")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestManagerParksAfterMaxAttemptsAndRecoversOnConnect(t *testing.T) {
	dialer := &fakeDialer{stream: newFakeStream(), refuse: true}
	events := make(chan Event, 64)

	m := NewManager(dialer, events, Options{
		Base:        time.Millisecond,
		Cap:         4 * time.Millisecond,
		MaxAttempts: 3,
		Logf:        func(string, ...any) {},
	})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	var attempts []int
	for {
		state := nextState(t, events)
		if state.Terminal {
			if state.Phase != PhaseDisconnected {
				t.Fatalf("expected terminal disconnected, got %+v", state)
			}
			break
		}
		if state.Phase == PhaseReconnecting {
			if state.NextDelay <= 0 {
				t.Fatalf("expected positive retry delay, got %+v", state)
			}
			attempts = append(attempts, state.Attempt)
		}
	}
	if len(attempts) != 3 || attempts[0] != 1 || attempts[1] != 2 || attempts[2] != 3 {
		t.Fatalf("expected attempts 1,2,3 before parking, got %v", attempts)
	}
	if !m.State().Terminal {
		t.Fatal("expected manager state to report terminal")
	}

	// A manual connect request leaves the parked state and starts over.
	dialer.setRefuse(false)
	m.Connect()

	if state := nextState(t, events); state.Phase != PhaseConnecting {
		t.Fatalf("expected connecting after manual connect, got %+v", state)
	}
	if state := nextState(t, events); state.Phase != PhaseConnected {
		t.Fatalf("expected connected after manual connect, got %+v", state)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{phase: PhaseDisconnected, want: "disconnected"},
		{phase: PhaseConnecting, want: "connecting"},
		{phase: PhaseReconnecting, want: "connecting"},
		{phase: PhaseConnected, want: "connected"},
	}
	for _, tc := range tests {
		if got := tc.phase.String(); got != tc.want {
			t.Fatalf("phase %d: expected %q, got %q", tc.phase, tc.want, got)
		}
	}
}
