// Package ws exposes the line protocol over WebSocket. Every text frame from
// the browser is one protocol line, and every line the server writes is sent
// back as one text frame.
package ws

import (
	"context"
	"net"
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// ConnHandler serves one client connection and returns when it is finished.
type ConnHandler func(ctx context.Context, conn net.Conn)

type Gateway struct {
	upgrader     websocket.Upgrader
	serve        ConnHandler
	maxLineBytes int64
	logger       logging.Logger
}

func NewGateway(serve ConnHandler, maxLineBytes int, l logging.Logger) *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		serve:        serve,
		maxLineBytes: int64(maxLineBytes),
		logger:       l.With("module", "ws_gateway"),
	}
}

// Router mounts the gateway at /ws.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/ws", g).Methods(http.MethodGet)
	return r
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	if g.maxLineBytes > 0 {
		wsConn.SetReadLimit(g.maxLineBytes)
	}

	g.serve(r.Context(), newConn(wsConn))
}
