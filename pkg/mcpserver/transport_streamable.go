package mcpserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/notify"
)

// ndjsonSender serializes writes onto the response body, interleaving
// request replies with any notification pushed mid-stream (§4.6
// streamable-HTTP: "server may push notifications interleaved on the
// same response stream"). inFlight tracks request ids whose response
// hasn't been written yet, so a notification racing a slow Dispatch call
// waits rather than jumping ahead of that request's reply.
type ndjsonSender struct {
	mu       sync.Mutex
	cond     *sync.Cond
	w        http.ResponseWriter
	flusher  http.Flusher
	inFlight map[string]struct{}
}

func newNDJSONSender(w http.ResponseWriter, flusher http.Flusher) *ndjsonSender {
	s := &ndjsonSender{w: w, flusher: flusher, inFlight: make(map[string]struct{})}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// beginRequest marks id as awaiting a response; a zero-value id (a
// notification or a malformed line with no id) is not tracked.
func (s *ndjsonSender) beginRequest(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	s.inFlight[id] = struct{}{}
	s.mu.Unlock()
}

func (s *ndjsonSender) endRequest(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
	s.cond.Broadcast()
}

// waitForDrain blocks until no request on this connection is awaiting a
// response, so a queued notification is only written after any in-flight
// result for the same connection has been written.
func (s *ndjsonSender) waitForDrain() {
	s.mu.Lock()
	for len(s.inFlight) > 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

func (s *ndjsonSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// StreamableHTTPHandler builds the POST /mcp/stream handler (§4.6, §6.1):
// one NDJSON request per line in, one NDJSON response per line out, on a
// connection kept open for the request's duration so notifications raised
// while handling it can be pushed inline.
func StreamableHTTPHandler(d *Dispatcher, sessions *SessionStore, n *notify.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		sessionID := r.Header.Get("Mcp-Session-Id")
		sender := newNDJSONSender(w, flusher)
		session, resolvedID := sessions.Get(sessionID, sender)

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Mcp-Session-Id", resolvedID)
		w.WriteHeader(http.StatusOK)

		ch, unsubscribe := n.Subscribe()
		defer unsubscribe()
		done := make(chan struct{})
		defer close(done)
		go relayNotifications(ch, done, sender)

		ctx := r.Context()
		scanner := bufio.NewScanner(r.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			id := requestID(line)
			sender.beginRequest(id)
			resp := d.Dispatch(ctx, session, append([]byte(nil), line...))
			sender.endRequest(id)

			if resp == nil {
				continue
			}
			if err := sender.Send(resp); err != nil {
				return
			}
		}
	})
}

// requestID peeks the id of an inbound line without fully parsing it, so
// the connection can track which request a pending response belongs to.
// Lines with no id (notifications) return "". Replies to server-initiated
// requests carry an id and return it like a request does.
func requestID(line []byte) string {
	var peek struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(line, &peek); err != nil || len(peek.ID) == 0 || string(peek.ID) == "null" {
		return ""
	}
	return string(peek.ID)
}

func relayNotifications(ch <-chan notify.Notification, done <-chan struct{}, sender *ndjsonSender) {
	for {
		select {
		case <-done:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(Notification{JSONRPC: "2.0", Method: n.Method, Params: n.Params})
			if err != nil {
				continue
			}
			sender.waitForDrain()
			_ = sender.Send(payload)
		}
	}
}
