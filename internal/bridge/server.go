package bridge

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"path"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"yolo-bridge-go/internal/config"
	"yolo-bridge-go/internal/flow"
	"yolo-bridge-go/internal/mask"
	"yolo-bridge-go/internal/packer"
	"yolo-bridge-go/internal/store"
	"yolo-bridge-go/internal/types"
)

//go:embed web/*
var webFS embed.FS

const writeWait = 10 * time.Second

// Server owns the set of live WebSocket connections and designates exactly
// one of them, the most recently connected, as the active target of the
// binary frame stream. It also carries the inbound path: text messages go
// through the router, binary messages through the result decoder.
type Server struct {
	upgrader websocket.Upgrader
	cfg      config.AppConfig
	flow     *flow.Controller
	store    *store.Store
	packer   *packer.Packer
	onResult func(types.SegmentationResult)
	statusFn func() map[string]any

	mu       sync.Mutex
	clients  map[string]*client
	activeID string

	framesSent    atomic.Uint64
	framesSkipped atomic.Uint64
	heartbeats    atomic.Uint64
	resultsOK     atomic.Uint64
	resultsBad    atomic.Uint64
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
}

// New builds a server around the shared flow controller, sink store and
// frame packer. onResult receives each decoded segmentation mask; statusFn
// may be nil or contribute extra fields to /status.
func New(cfg config.AppConfig, fc *flow.Controller, st *store.Store, pk *packer.Packer, onResult func(types.SegmentationResult), statusFn func() map[string]any) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cfg:      cfg,
		flow:     fc,
		store:    st,
		packer:   pk,
		onResult: onResult,
		statusFn: statusFn,
		clients:  make(map[string]*client),
	}
}

// Handler returns the HTTP surface: embedded web client at /, the frame
// stream at /ws, plus /healthz and /status.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", noCacheFileServer())
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	return httpServer.ListenAndServe()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 24)

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		done: make(chan struct{}),
	}

	conn.SetPingHandler(func(appData string) error {
		// Protocol-level liveness echo.
		_ = s.writeMessage(c, websocket.PongMessage, []byte(appData))
		return nil
	})
	conn.SetPongHandler(func(string) error {
		log.Printf("pong from %s", c.id)
		return nil
	})

	s.addClient(c)
	go s.keepalive(c)
	go s.readLoop(c)
}

// addClient registers the connection and makes it the sole active one. A
// second connect replaces the active identity: last writer wins, there is
// no binary fan-out.
func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.activeID = c.id
	s.mu.Unlock()
	log.Printf("client connected: %s", c.id)
}

// removeClient drops the registration and, if the connection was active,
// leaves the active slot empty. No failover to another connection.
func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c.id]; ok {
		delete(s.clients, c.id)
		close(c.done)
	}
	if s.activeID == c.id {
		s.activeID = ""
	}
	s.mu.Unlock()
	c.conn.Close()
	log.Printf("client disconnected: %s", c.id)
}

func (s *Server) keepalive(c *client) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			// Best-effort liveness probe, not a correctness signal.
			_ = s.writeMessage(c, websocket.PingMessage, nil)
		}
	}
}

func (s *Server) readLoop(c *client) {
	defer s.removeClient(c)
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		switch messageType {
		case websocket.TextMessage:
			s.routeText(c.id, string(data))
		case websocket.BinaryMessage:
			s.handleBinary(data)
		}
	}
}

func (s *Server) handleBinary(data []byte) {
	result, ok := mask.Decode(data)
	if !ok {
		s.resultsBad.Add(1)
		return
	}
	s.resultsOK.Add(1)
	if s.onResult != nil {
		deliverResult(s.onResult, result)
	}
}

// deliverResult hands the decoded mask to the downstream consumer. A
// misbehaving sink must never take down the receive path.
func deliverResult(sink func(types.SegmentationResult), result types.SegmentationResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("result sink panic: %v", r)
		}
	}()
	sink(result)
}

type heartbeat struct {
	Sync  bool   `json:"sync"`
	Tick  uint64 `json:"tick"`
	Frame uint64 `json:"frame"`
}

// SendFrame is the producer tick entry point, invoked once per rendered
// frame. Busy gates whether the tick produces a full binary frame or only
// a lightweight heartbeat; the Busy flag is raised before any I/O so a
// reentrant tick cannot enter the pipeline during a slow write.
func (s *Server) SendFrame(src types.SourceFrame, tick uint64) {
	if s.flow.Busy() {
		if c := s.active(); c != nil {
			payload, err := json.Marshal(heartbeat{Sync: true, Tick: tick, Frame: tick})
			if err == nil {
				s.sendText(c, payload)
				s.heartbeats.Add(1)
			}
		}
		if s.flow.ShouldHold(tick) {
			return
		}
	}

	c := s.active()
	if c == nil {
		// Not an error: ticks without a consumer are no-ops.
		return
	}

	s.flow.MarkBusy(tick)

	frame, ok := s.packer.Pack(src, uint32(tick), uint32(tick))
	if !ok {
		s.framesSkipped.Add(1)
		return
	}
	if err := s.writeMessage(c, websocket.BinaryMessage, frame); err != nil {
		log.Printf("binary send to %s failed: %v", c.id, err)
		return
	}
	s.framesSent.Add(1)
}

// ActiveID returns the id of the current binary-stream target, or "".
func (s *Server) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *Server) active() *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return nil
	}
	return s.clients[s.activeID]
}

// sendText writes a text message, swallowing failures: a slow or gone
// consumer must never stall or crash the producer tick.
func (s *Server) sendText(c *client, payload []byte) {
	if err := s.writeMessage(c, websocket.TextMessage, payload); err != nil {
		log.Printf("text send to %s failed: %v", c.id, err)
	}
}

// broadcastExcept relays a message verbatim to every connected peer except
// the sender.
func (s *Server) broadcastExcept(senderID string, payload []byte) {
	s.mu.Lock()
	peers := make([]*client, 0, len(s.clients))
	for id, c := range s.clients {
		if id != senderID {
			peers = append(peers, c)
		}
	}
	s.mu.Unlock()
	for _, c := range peers {
		s.sendText(c, payload)
	}
}

func (s *Server) writeMessage(c *client, messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, payload)
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := s.store.Snapshot()
	payload["ws_clients"] = s.clientCount()
	payload["active"] = s.ActiveID() != ""
	payload["busy"] = s.flow.Busy()
	payload["metrics"] = map[string]any{
		"frames_sent_total":        s.framesSent.Load(),
		"frames_skipped_total":     s.framesSkipped.Load(),
		"heartbeats_total":         s.heartbeats.Load(),
		"results_decoded_total":    s.resultsOK.Load(),
		"results_rejected_total":   s.resultsBad.Load(),
		"stale_fallthroughs_total": s.flow.StaleFallthroughs(),
	}
	if s.statusFn != nil {
		for k, v := range s.statusFn() {
			payload[k] = v
		}
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// noCacheFileServer serves the embedded web client. The inference client
// re-fetches its model and wasm runtime on every load, so everything is
// served with caching disabled and explicit MIME types for the files Go's
// detection gets wrong.
func noCacheFileServer() http.Handler {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch path.Ext(r.URL.Path) {
		case ".wasm":
			w.Header().Set("Content-Type", "application/wasm")
		case ".mjs":
			w.Header().Set("Content-Type", "application/javascript")
		case ".bin":
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		files.ServeHTTP(w, r)
	})
}
