package mcpserver

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// noopSender discards server-initiated frames for transports that can't
// deliver them inline with the request/response cycle (plain HTTP POST).
type noopSender struct{}

func (noopSender) Send([]byte) error { return nil }

// httpRoutes holds the shared state behind the POST /mcp handler.
type httpRoutes struct {
	dispatcher *Dispatcher
	sessions   *SessionStore
}

// HTTPHandler builds the POST /mcp handler (§4.6, §6.1): single request
// body in, single response body out. A client that wants its capability
// declarations and log level to persist across calls supplies
// Mcp-Session-Id; one is minted and echoed back otherwise.
func HTTPHandler(d *Dispatcher, sessions *SessionStore) http.Handler {
	h := &httpRoutes{dispatcher: d, sessions: sessions}
	r := chi.NewRouter()
	r.Post("/mcp", h.handleMCP)
	return r
}

func (h *httpRoutes) handleMCP(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	sessionID := req.Header.Get("Mcp-Session-Id")
	session, resolvedID := h.sessions.Get(sessionID, noopSender{})

	resp := h.dispatcher.Dispatch(req.Context(), session, body)

	w.Header().Set("Mcp-Session-Id", resolvedID)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}
