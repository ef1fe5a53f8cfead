package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"
)

// lineSender writes one JSON value per line to w, serializing concurrent
// writers (§5 "single-writer discipline on the wire").
type lineSender struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *lineSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	_, err := s.w.Write([]byte("\n"))
	return err
}

// ServeStdio runs the dispatcher over one JSON message per line on r/w
// (§4.6, §6.1). It blocks until r is exhausted or ctx is cancelled.
func ServeStdio(ctx context.Context, d *Dispatcher, r io.Reader, w io.Writer) error {
	sender := &lineSender{w: w}
	session := NewClientSession("stdio", sender)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := d.Dispatch(ctx, session, append([]byte(nil), line...))
		if resp != nil {
			if err := sender.Send(resp); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}
