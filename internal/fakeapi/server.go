// Package fakeapi is an in-memory implementation of the remote itinerary
// service. It backs the devserver command and the client's tests.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rcliao/tripplan/internal/logging"
	"github.com/rcliao/tripplan/internal/model"
)

// MaxTripDays is the longest trip the generator accepts.
const MaxTripDays = 30

// Call is a request observed by the server.
type Call struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	ContentType   string
}

type failure struct {
	status int
	detail string
}

// Server holds users and itineraries in memory.
type Server struct {
	mu       sync.Mutex
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	users    map[string]string
	records  map[string][]model.Itinerary
	nextID   int
	failures map[string][]failure
	blocks   map[string]chan struct{}
	calls    []Call

	validate *validator.Validate
	logger   *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HMAC key used to sign access tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithClock overrides the server's notion of now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		secret:   []byte("tripplan-dev-secret"),
		tokenTTL: 24 * time.Hour,
		now:      time.Now,
		users:    map[string]string{},
		records:  map[string][]model.Itinerary{},
		failures: map[string][]failure{},
		blocks:   map[string]chan struct{}{},
		validate: validator.New(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Handler returns the service's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Post("/token", s.handleLogin)
	r.Post("/register", s.handleRegister)

	r.Route("/api/itinerary", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/generate", s.handleGenerate)
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Patch("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})

	return r
}

// observe records the call, applies injected failures and blocks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, r.URL.Path)

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			ContentType:   r.Header.Get("Content-Type"),
		})
		var injected *failure
		if q := s.failures[key]; len(q) > 0 {
			injected = &q[0]
			s.failures[key] = q[1:]
		}
		gate := s.blocks[key]
		s.mu.Unlock()

		s.logger.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if injected != nil {
			writeDetail(w, injected.status, injected.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routeKey(method, path string) string {
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return method + " " + path
}

// FailNext makes the next request to method and path answer with status.
// Calls queue up: the second FailNext for the same route fails the second request.
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := routeKey(method, path)
	s.failures[key] = append(s.failures[key], failure{status: status, detail: detail})
}

// Block holds requests to method and path until the returned release is
// called. Release is idempotent.
func (s *Server) Block(method, path string) (release func()) {
	gate := make(chan struct{})
	key := routeKey(method, path)

	s.mu.Lock()
	s.blocks[key] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.blocks[key] == gate {
				delete(s.blocks, key)
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns the requests seen so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns how many requests matched method and path.
func (s *Server) CallCount(method, path string) int {
	key := routeKey(method, path)
	n := 0
	for _, c := range s.Calls() {
		if routeKey(c.Method, c.Path) == key {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{
		"detail": {{Loc: []string{"body", field}, Msg: msg, Type: "value_error"}},
	})
}
