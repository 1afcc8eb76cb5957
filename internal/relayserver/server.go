package relayserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parley/internal/domain"
)

// Server is the development relay. It holds the bundle directory in memory
// and delegates queued envelopes to a Mailbox.
type Server struct {
	mailbox Mailbox
	log     *zap.Logger

	mu      sync.Mutex
	bundles map[string]domain.PreKeyBundlePublic
	watches map[string][]*websocket.Conn
}

// New returns a Server over the given mailbox. log may be nil.
func New(mailbox Mailbox, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		mailbox: mailbox,
		log:     log,
		bundles: make(map[string]domain.PreKeyBundlePublic),
		watches: make(map[string][]*websocket.Conn),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/bundle/{user}", s.handleBundle).Methods(http.MethodGet)
	r.HandleFunc("/msg/{user}", s.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/msg/{user}", s.handleFetch).Methods(http.MethodGet)
	r.HandleFunc("/msg/{user}/ack", s.handleAck).Methods(http.MethodPost)
	r.HandleFunc("/ws/{user}", s.handleWatch).Methods(http.MethodGet)
	return r
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var b domain.PreKeyBundlePublic
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil || b.UserID == "" {
		http.Error(w, "bad bundle", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.bundles[b.UserID] = b
	s.mu.Unlock()
	s.log.Info("bundle registered", zap.String("user", b.UserID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	s.mu.Lock()
	b, ok := s.bundles[user]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}
	writeJSON(w, b)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	var env domain.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "bad envelope", http.StatusBadRequest)
		return
	}
	env.To = user

	// A live watcher gets the envelope directly; otherwise it queues.
	if s.pushToWatcher(user, env) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.mailbox.Push(r.Context(), user, env); err != nil {
		s.log.Error("mailbox push failed", zap.String("user", user), zap.Error(err))
		http.Error(w, "mailbox unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	envs, err := s.mailbox.List(r.Context(), user, limit)
	if err != nil {
		s.log.Error("mailbox list failed", zap.String("user", user), zap.Error(err))
		http.Error(w, "mailbox unavailable", http.StatusInternalServerError)
		return
	}
	if envs == nil {
		envs = []domain.Envelope{}
	}
	writeJSON(w, envs)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Count < 0 {
		http.Error(w, "bad ack", http.StatusBadRequest)
		return
	}
	if err := s.mailbox.Ack(r.Context(), user, req.Count); err != nil {
		s.log.Error("mailbox ack failed", zap.String("user", user), zap.Error(err))
		http.Error(w, "mailbox unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.watches[user] = append(s.watches[user], conn)
	s.mu.Unlock()
	s.log.Info("watch opened", zap.String("user", user))

	// Drain reads so close frames are processed; the relay never expects
	// client data on this socket.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.dropWatcher(user, conn)
				return
			}
		}
	}()
}

// pushToWatcher delivers env to one connected watcher, if any. Returns false
// when nobody is watching or every write fails.
func (s *Server) pushToWatcher(user string, env domain.Envelope) bool {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.watches[user]...)
	s.mu.Unlock()
	for _, conn := range conns {
		if err := conn.WriteJSON(env); err != nil {
			s.dropWatcher(user, conn)
			continue
		}
		return true
	}
	return false
}

func (s *Server) dropWatcher(user string, conn *websocket.Conn) {
	s.mu.Lock()
	conns := s.watches[user]
	for i, c := range conns {
		if c == conn {
			s.watches[user] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	conn.Close()
	s.log.Info("watch closed", zap.String("user", user))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
