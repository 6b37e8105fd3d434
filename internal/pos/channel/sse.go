package channel

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SSEDialer opens Server-Sent Events connections to the POS event endpoint.
// Each event's data lines carry one JSON frame for the envelope codec.
type SSEDialer struct {
	url        string
	httpClient *http.Client
}

// NewSSEDialer creates a dialer for the given event-stream URL. The client
// must not set an overall request timeout; stream lifetime is governed by
// the dial context.
func NewSSEDialer(url string, httpClient *http.Client) *SSEDialer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &SSEDialer{url: url, httpClient: httpClient}
}

// Dial opens the event stream. The returned stream stays open until the
// server closes it, a read fails, or ctx ends.
func (d *SSEDialer) Dial(ctx context.Context) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build event stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream content type %q", ct)
	}

	return newSSEStream(resp.Body), nil
}

type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	return &sseStream{body: body, scanner: scanner}
}

// Recv returns the next event's data payload. Multi-line data fields are
// joined with newlines; comment and id/event fields are skipped.
func (s *sseStream) Recv() ([]byte, error) {
	var data [][]byte
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			if len(data) == 0 {
				continue
			}
			return bytes.Join(data, []byte("\n")), nil
		}
		if line[0] == ':' {
			continue
		}
		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			rest = bytes.TrimPrefix(rest, []byte(" "))
			payload := make([]byte, len(rest))
			copy(payload, rest)
			data = append(data, payload)
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		return bytes.Join(data, []byte("\n")), nil
	}
	return nil, io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
