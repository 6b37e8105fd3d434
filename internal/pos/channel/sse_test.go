package channel

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSSEStreamRecv(t *testing.T) {
	body := strings.Join([]string{
		": heartbeat comment",
		`data: {"type":"status","data":{"status":"connected"}}`,
		"",
		"event: message",
		"id: 42",
		"data: first line",
		"data: second line",
		"",
		"data:no-space",
		"",
	}, "\n")

	stream := newSSEStream(io.NopCloser(strings.NewReader(body)))

	frame, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(frame) != `{"type":"status","data":{"status":"connected"}}` {
		t.Fatalf("unexpected frame %q", frame)
	}

	frame, err = stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(frame) != "first line\nsecond line" {
		t.Fatalf("expected joined multi-line data, got %q", frame)
	}

	frame, err = stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(frame) != "no-space" {
		t.Fatalf("unexpected frame %q", frame)
	}

	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestSSEStreamRecvFlushesTrailingEvent(t *testing.T) {
	// Stream ends without the terminating blank line.
	stream := newSSEStream(io.NopCloser(strings.NewReader("data: tail")))

	frame, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(frame) != "tail" {
		t.Fatalf("unexpected frame %q", frame)
	}
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSSEDialerDial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("expected event-stream accept header, got %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: hello\n\n")
	}))
	defer srv.Close()

	dialer := NewSSEDialer(srv.URL, srv.Client())
	stream, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer stream.Close()

	frame, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(frame) != "hello" {
		t.Fatalf("unexpected frame %q", frame)
	}
}

func TestSSEDialerDialRejections(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		if _, err := NewSSEDialer(srv.URL, srv.Client()).Dial(context.Background()); err == nil {
			t.Fatal("expected error for non-200 response")
		}
	})

	t.Run("wrong content type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
		}))
		defer srv.Close()

		if _, err := NewSSEDialer(srv.URL, srv.Client()).Dial(context.Background()); err == nil {
			t.Fatal("expected error for wrong content type")
		}
	})
}
