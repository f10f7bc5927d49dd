// Package servers hosts the shared-state store behind a websocket
// endpoint speaking the pkg/messages protocol.
package servers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/messages"
	"github.com/mskovgaard/warboard/pkg/store"
)

// WSServer serves the document store to websocket clients. Conflicting
// writes are resolved per document by version: a stale write is answered
// with the fresh value so the client can re-run its mutator.
type WSServer struct {
	port  int
	tls   *TLSConfig
	store *store.InMemoryStore
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewWSServerOptions struct {
	Port  int
	TLS   *TLSConfig
	Store *store.InMemoryStore
}

// NewWSServer creates a new store server.
func NewWSServer(opts NewWSServerOptions) *WSServer {
	return &WSServer{
		port:  opts.Port,
		tls:   opts.TLS,
		store: opts.Store,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler returns the websocket upgrade handler, exposed separately so
// tests can mount it on an httptest server.
func (s *WSServer) Handler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		log.Debug("New WebSocket connection from %s", conn.RemoteAddr().String())
		go s.handleWSConnection(ctx, conn)
	}
}

// Start starts the store server.
func (s *WSServer) Start(ctx context.Context) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.Handler(ctx))

	addr := fmt.Sprintf(":%d", s.port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		server.Shutdown(ctx)
	}()

	var listenAndServe func() error
	if s.tls != nil {
		log.Info("Store server listening on %s with TLS", addr)
		listenAndServe = func() error {
			return server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("Store server listening on %s", addr)
		listenAndServe = server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("Store server closed")
			return
		}
		log.Error("Store server error: %v", err)
	}
}

func (s *WSServer) handleWSConnection(ctx context.Context, conn *websocket.Conn) {
	client := newWSClientState(s.store, conn)
	defer client.close()

	go client.writeLoop(ctx)

	for {
		message, err := ReadMessageFromWS(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("Error reading WebSocket message from %s: %v", conn.RemoteAddr().String(), err)
			}
			log.Trace("Connection closed for %s", conn.RemoteAddr().String())
			return
		}

		if err := client.handleMessage(ctx, message); err != nil {
			log.Error("Failed to handle %s message: %v", message.Type, err)
		}
	}
}

// WriteMessageToWS writes a Message to a WebSocket connection.
func WriteMessageToWS(conn *websocket.Conn, msg *messages.Message) error {
	b, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("failed to write message to WebSocket connection: %v", err)
	}

	return nil
}

// ReadMessageFromWS reads a Message from a WebSocket connection.
func ReadMessageFromWS(conn *websocket.Conn) (*messages.Message, error) {
	_, message, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	msg, err := messages.DeserializeMessage(message)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize message: %v", err)
	}

	return msg, nil
}
