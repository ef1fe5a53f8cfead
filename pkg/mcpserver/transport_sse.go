package mcpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/notify"
)

// SSEHandler builds the GET /mcp/stream handler (§4.6, §6.1): outbound
// notifications only, one `data:` event per notification. It never reads
// a body and never produces a JSON-RPC response — a client that wants
// request/response semantics uses HTTP POST or streamable-HTTP instead.
func SSEHandler(n *notify.Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ch, unsubscribe := n.Subscribe()
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(Notification{JSONRPC: "2.0", Method: n.Method, Params: n.Params})
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	})
}
