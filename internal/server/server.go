package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"audiorating/internal/api"
	"audiorating/internal/config"
	"audiorating/internal/logging"
	"audiorating/internal/store"
	"audiorating/internal/studies"
)

// Backend is the persistence surface the HTTP handlers need.
type Backend interface {
	ListStudies(ctx context.Context) ([]store.StudySummary, error)
	StudyConfig(ctx context.Context, nameShort string) (*store.Study, error)
	EnsureParticipant(ctx context.Context, study *store.Study, uid string) error
	UpsertRatings(ctx context.Context, sub store.Submission) (store.Operation, error)
	RatingsForStudy(ctx context.Context, nameShort string) ([]store.RatingRecord, error)
	Progress(ctx context.Context, nameShort, uid string) ([]store.SongProgress, error)
	SyncStudies(ctx context.Context, cfg *studies.Config) ([]string, error)
	Ping(ctx context.Context) error
}

// Server serves the ratings API and enforces single-instance execution.
type Server struct {
	cfg     *config.Config
	backend Backend
	logger  *slog.Logger
	handler http.Handler

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	running  atomic.Bool
}

// New constructs a server with its routes wired.
func New(cfg *config.Config, backend Backend, logger *slog.Logger) (*Server, error) {
	if cfg == nil || backend == nil {
		return nil, errors.New("server requires config and backend")
	}
	lockPath := cfg.LockPath()
	s := &Server{
		cfg:      cfg,
		backend:  backend,
		logger:   logging.NewComponentLogger(logger, "server"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api", s.handleRoot)
	mux.HandleFunc("GET /api/studies", s.handleStudies)
	mux.HandleFunc("GET /api/studies/{name_short}", s.handleStudy)
	mux.HandleFunc("GET /api/studies/{name_short}/progress", s.handleProgress)
	mux.HandleFunc("GET /api/studies/{name_short}/export", s.handleExport)
	mux.HandleFunc("POST /api/ratings", s.handleSubmit)

	var h http.Handler = mux
	h = authMiddleware(s.cfg.Paths.APIToken, h)
	h = corsMiddleware(s.cfg.Server.AllowedOrigins, h)
	h = s.requestIDMiddleware(h)
	return h
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(api.RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(api.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// SyncStudies loads the configured studies file and creates missing studies.
func (s *Server) SyncStudies(ctx context.Context) error {
	path := strings.TrimSpace(s.cfg.Paths.StudiesConfig)
	if path == "" {
		return errors.New("paths.studies_config is not set")
	}
	parsed, err := studies.Load(path)
	if err != nil {
		return err
	}
	created, err := s.backend.SyncStudies(ctx, parsed)
	if err != nil {
		return fmt.Errorf("sync studies: %w", err)
	}
	for _, name := range created {
		s.logger.Info("study created", logging.Study(name))
	}
	s.logger.Info("studies synced",
		logging.String("config", path),
		logging.Int("configured", len(parsed.Studies)),
		logging.Int("created", len(created)),
	)
	return nil
}

// Start acquires the instance lock, syncs studies and begins serving. It
// returns once the listener is bound; serving stops when ctx is cancelled
// or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another audiorating server instance is already running")
	}

	if err := s.SyncStudies(ctx); err != nil {
		_ = s.lock.Unlock()
		return err
	}

	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
	}
	s.mu.Lock()
	s.listener = listener
	s.http = srv
	s.mu.Unlock()
	s.running.Store(true)

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("database", s.cfg.Paths.DatabasePath),
	)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down and releases the instance lock.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.listener = nil
	s.mu.Unlock()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.WarnWithContext(s.logger, "api server shutdown incomplete", "shutdown",
				logging.Error(err),
				logging.String(logging.FieldImpact, "in-flight requests were cut off"),
			)
		}
	}
	if err := s.lock.Unlock(); err != nil {
		logging.WarnWithContext(s.logger, "failed to release server lock", "lock_release",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+s.lockPath+" if no server is running"),
		)
	}
	s.logger.Info("api server stopped")
}
