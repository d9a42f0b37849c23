package store

import (
	"sync"
	"time"
)

// Store holds the text-message sinks the router writes into and the
// producer reads back out: latest predictions payload, tick sync message,
// webcam device list and status report, plus the consumer loading flag.
// All values are raw message strings; interpretation is the reader's
// problem, the router only classifies.
type Store struct {
	mu          sync.Mutex
	predictions string
	tick        string
	webcamList  string
	status      string
	loading     bool
	lastUpdate  time.Time
}

func New() *Store {
	return &Store{loading: true}
}

func (s *Store) SetPredictions(msg string) { s.set(&s.predictions, msg) }
func (s *Store) SetTick(msg string)        { s.set(&s.tick, msg) }
func (s *Store) SetWebcamList(msg string)  { s.set(&s.webcamList, msg) }
func (s *Store) SetStatus(msg string)      { s.set(&s.status, msg) }

func (s *Store) set(dst *string, msg string) {
	s.mu.Lock()
	*dst = msg
	s.lastUpdate = time.Now()
	s.mu.Unlock()
}

func (s *Store) Predictions() string { return s.get(&s.predictions) }
func (s *Store) Tick() string        { return s.get(&s.tick) }
func (s *Store) WebcamList() string  { return s.get(&s.webcamList) }
func (s *Store) Status() string      { return s.get(&s.status) }

func (s *Store) get(src *string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *src
}

// ClearLoading marks the consumer as done loading its model.
func (s *Store) ClearLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Snapshot returns a JSON-ready view for the /status endpoint.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{
		"loading": s.loading,
	}
	if s.predictions != "" {
		out["predictions"] = s.predictions
	}
	if s.tick != "" {
		out["tick"] = s.tick
	}
	if s.webcamList != "" {
		out["webcam_devices"] = s.webcamList
	}
	if s.status != "" {
		out["status"] = s.status
	}
	if !s.lastUpdate.IsZero() {
		out["last_update"] = s.lastUpdate.Format(time.RFC3339)
	}
	return out
}
