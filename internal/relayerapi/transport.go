package relayerapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/ethereum/go-ethereum/log"
)

// maxRequestBodySize bounds a single HTTP JSON-RPC request body, guarding
// against an unbounded read on a misbehaving client.
const maxRequestBodySize = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// HTTPHandler serves req/resp JSON-RPC 2.0 over plain HTTP POST.
func HTTPHandler(s *Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, errorResponse(nil, codeParseError, "invalid request body"))
			return
		}
		resp := s.Handle(r.Context(), req)
		writeJSON(w, resp)
	})
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn("relayerapi: failed to write response", "err", err)
	}
}

// WSHandler upgrades to a WebSocket and serves a stream of JSON-RPC 2.0
// request/response pairs over it, one request per inbound text message.
func WSHandler(s *Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("relayerapi: websocket upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req Request
			var resp Response
			if err := json.Unmarshal(payload, &req); err != nil {
				resp = errorResponse(nil, codeParseError, "invalid request body")
			} else {
				resp = s.Handle(r.Context(), req)
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	})
}

// NewHTTPServer wraps the JSON-RPC HTTP handler with CORS, following the
// teacher's node package's HTTP/WS mux + CORS middleware layering.
func NewHTTPServer(s *Server, addr string, corsHosts []string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/", HTTPHandler(s))
	mux.Handle("/ws", WSHandler(s))

	handler := cors.New(cors.Options{
		AllowedOrigins: corsHosts,
		AllowedMethods: []string{http.MethodPost},
	}).Handler(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ServeIPC listens on a Unix-socket path and serves the same JSON-RPC
// handler used by the HTTP/WS listeners, an IPC endpoint alongside the
// HTTP/WS transports.
func ServeIPC(ctx context.Context, s *Server, path string) error {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	srv := &http.Server{Handler: HTTPHandler(s)}
	err = srv.Serve(ln)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
