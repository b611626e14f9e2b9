package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"elgchat/internal/domain"
)

// maxBodyBytes bounds any request body the server will decode.
const maxBodyBytes = 1 << 20

// Server is an in-memory relay. All state is lost when the process exits.
// Callers are not authenticated; see the package documentation.
type Server struct {
	log zerolog.Logger
	now func() time.Time

	mu            sync.RWMutex
	keys          map[domain.ParticipantID]domain.PublicKey
	conversations map[domain.ConversationID]domain.Conversation
	queues        map[domain.ParticipantID][]domain.Envelope
}

// NewServer returns an empty relay that logs one line per request to log.
func NewServer(log zerolog.Logger) *Server {
	return &Server{
		log:           log,
		now:           time.Now,
		keys:          make(map[domain.ParticipantID]domain.PublicKey),
		conversations: make(map[domain.ConversationID]domain.Conversation),
		queues:        make(map[domain.ParticipantID][]domain.Envelope),
	}
}

// Handler returns the relay's HTTP API wrapped in the access log.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /keys", s.publishKey)
	mux.HandleFunc("GET /keys/{id}", s.fetchKey)
	mux.HandleFunc("POST /conversations", s.createConversation)
	mux.HandleFunc("GET /conversations", s.listConversations)
	mux.HandleFunc("POST /msg", s.deliver)
	mux.HandleFunc("GET /msg/{id}", s.fetchMessages)
	mux.HandleFunc("POST /msg/{id}/ack", s.ack)
	return s.accessLog(mux)
}

func (s *Server) publishKey(w http.ResponseWriter, r *http.Request) {
	var rec KeyRecord
	if !decode(w, r, &rec) {
		return
	}
	if rec.ParticipantID == "" || rec.PublicKey.P == "" || rec.PublicKey.G == "" || rec.PublicKey.Y == "" {
		http.Error(w, "participantId and publicKey {p,g,y} required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.keys[rec.ParticipantID] = rec.PublicKey
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fetchKey(w http.ResponseWriter, r *http.Request) {
	id := domain.ParticipantID(r.PathValue("id"))
	s.mu.RLock()
	key, ok := s.keys[id]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, KeyRecord{ParticipantID: id, PublicKey: key})
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var payload domain.ConversationPayload
	if !decode(w, r, &payload) {
		return
	}
	if err := checkConversation(payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conv := domain.Conversation{
		ID:                  domain.ConversationID(uuid.NewString()),
		ConversationPayload: payload,
		CreatedUTC:          s.now().Unix(),
	}
	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, conv)
}

func checkConversation(p domain.ConversationPayload) error {
	if len(p.ParticipantIDs) == 0 {
		return errors.New("participantIds required")
	}
	seen := make(map[domain.ParticipantID]bool, len(p.ParticipantIDs))
	for _, id := range p.ParticipantIDs {
		if id == "" || seen[id] {
			return fmt.Errorf("participant %q empty or repeated", id)
		}
		seen[id] = true
		if _, ok := p.EncryptedKeys[id]; !ok {
			return fmt.Errorf("no encrypted key for %q", id)
		}
	}
	if len(p.EncryptedKeys) != len(p.ParticipantIDs) {
		return errors.New("encrypted keys for non-participants")
	}
	return nil
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	member := domain.ParticipantID(r.URL.Query().Get("member"))
	if member == "" {
		http.Error(w, "member required", http.StatusBadRequest)
		return
	}
	s.mu.RLock()
	out := make([]domain.Conversation, 0)
	for _, c := range s.conversations {
		if c.HasParticipant(member) {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedUTC != out[j].CreatedUTC {
			return out[i].CreatedUTC < out[j].CreatedUTC
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deliver(w http.ResponseWriter, r *http.Request) {
	var d domain.Delivery
	if !decode(w, r, &d) {
		return
	}
	if len(d.Recipients) == 0 {
		http.Error(w, "recipients required", http.StatusBadRequest)
		return
	}
	if d.Envelope.Type != domain.EnvelopeTypeMessage {
		http.Error(w, "unsupported envelope type", http.StatusBadRequest)
		return
	}
	if d.Envelope.Payload.Timestamp == 0 {
		d.Envelope.Payload.Timestamp = s.now().Unix()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id := d.Envelope.Payload.ConversationID; id != "" {
		conv, ok := s.conversations[id]
		if !ok {
			http.Error(w, "unknown conversation", http.StatusNotFound)
			return
		}
		for _, rcpt := range d.Recipients {
			if !conv.HasParticipant(rcpt) {
				http.Error(w, fmt.Sprintf("%q is not a participant", rcpt), http.StatusForbidden)
				return
			}
		}
	}
	for _, rcpt := range d.Recipients {
		s.queues[rcpt] = append(s.queues[rcpt], d.Envelope)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) fetchMessages(w http.ResponseWriter, r *http.Request) {
	id := domain.ParticipantID(r.PathValue("id"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	s.mu.RLock()
	q := s.queues[id]
	if limit == 0 || limit > len(q) {
		limit = len(q)
	}
	out := append([]domain.Envelope{}, q[:limit]...)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ack(w http.ResponseWriter, r *http.Request) {
	id := domain.ParticipantID(r.PathValue("id"))
	var req AckRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Count < 0 {
		http.Error(w, "bad count", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	q := s.queues[id]
	if req.Count >= len(q) {
		delete(s.queues, id)
	} else {
		s.queues[id] = q[req.Count:]
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		http.Error(w, "malformed body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
