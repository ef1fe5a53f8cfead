package mcpserver

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// defaultAllowedOrigins mirrors local dev defaults; production deployments
// should set WebSocketOrigins explicitly.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultAllowedOrigins
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}
	allowAll := allowed["*"]

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := strings.ToLower(strings.TrimRight(r.Header.Get("Origin"), "/"))
			if origin == "" {
				return true
			}
			return allowed[origin]
		},
	}
}

const wsWriteTimeout = 10 * time.Second

// wsSender serializes writes onto the connection so a reverse sampling
// request and a tools/call response can never interleave mid-frame (§5
// single-writer discipline).
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// wsConnection manages the lifecycle of one upgraded WebSocket connection.
type wsConnection struct {
	conn       *websocket.Conn
	dispatcher *Dispatcher
	session    *ClientSession
	cancel     context.CancelFunc
}

// WebSocketHandler builds the /mcp/ws upgrade handler (§4.6, §6.1). Each
// connection keeps its own ClientSession for its whole lifetime, so
// sampling/elicitation forwarding (§4.4) works without an Mcp-Session-Id.
func WebSocketHandler(d *Dispatcher, allowedOrigins []string) http.Handler {
	up := newUpgrader(allowedOrigins)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		sender := &wsSender{conn: conn}
		wsc := &wsConnection{
			conn:       conn,
			dispatcher: d,
			session:    NewClientSession(wsSessionID(r), sender),
			cancel:     cancel,
		}
		wsc.run(ctx)
	})
}

func wsSessionID(r *http.Request) string {
	if id := r.Header.Get("Mcp-Session-Id"); id != "" {
		return id
	}
	return "ws-" + r.RemoteAddr
}

func (wsc *wsConnection) run(ctx context.Context) {
	defer func() {
		wsc.cancel()
		_ = wsc.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgType, data, err := wsc.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		resp := wsc.dispatcher.Dispatch(ctx, wsc.session, data)
		if resp == nil {
			continue
		}
		sender := wsc.session.sender.(*wsSender)
		if err := sender.Send(resp); err != nil {
			return
		}
	}
}
