package visualization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/geomood/internal/classify"
	"github.com/nvandessel/geomood/internal/journal"
	"github.com/nvandessel/geomood/internal/logging"
	"github.com/nvandessel/geomood/internal/models"
	"github.com/nvandessel/geomood/internal/ratelimit"
)

// Journal is what the server reads cores and gem cards from.
type Journal interface {
	Core(ctx context.Context) (*journal.Core, error)
	Surface(ctx context.Context) (classify.Surface, error)
	Appraise(ctx context.Context, id string) (*journal.Appraisal, error)
}

// ServerOptions configures canvas geometry and logging.
type ServerOptions struct {
	// Width is the canvas width in pixels. Defaults to columns * grain size.
	Width int

	// MinHeight is the shortest canvas drawn. Defaults to DefaultMinHeight.
	MinHeight int

	Logger *slog.Logger
}

// Server serves the interactive core page and its JSON API.
type Server struct {
	journal    Journal
	opts       ServerOptions
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a new core visualization server.
func NewServer(j Journal, opts ServerOptions) *Server {
	if opts.MinHeight <= 0 {
		opts.MinHeight = DefaultMinHeight
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		journal: j,
		opts:    opts,
		limiter: ratelimit.PerMinute(120, 20),
		logger:  logger,
	}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/core.svg", s.handleSVG)
	mux.HandleFunc("/api/core", s.handleCore)
	mux.HandleFunc("/api/grain", s.limited(s.handleGrain))
	mux.HandleFunc("/api/gem", s.limited(s.handleGem))
	return mux
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(r.URL.Path) {
			retry := s.limiter.RetryAfter(r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// load simulates the journal and sizes the canvas for it.
func (s *Server) load(ctx context.Context) (*journal.Core, Layout, error) {
	core, err := s.journal.Core(ctx)
	if err != nil {
		return nil, Layout{}, err
	}
	return core, NewLayout(s.opts.Width, s.opts.MinHeight, core.Columns, core.MaxHeight), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	core, layout, err := s.load(r.Context())
	if err != nil {
		s.fail(w, "render error", err)
		return
	}
	surface, err := s.journal.Surface(r.Context())
	if err != nil {
		s.fail(w, "render error", err)
		return
	}

	var page bytes.Buffer
	if err := RenderHTML(&page, core, surface, layout); err != nil {
		s.fail(w, "render error", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page.Bytes())
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	core, layout, err := s.load(r.Context())
	if err != nil {
		s.fail(w, "render error", err)
		return
	}

	var svg bytes.Buffer
	if err := RenderSVG(&svg, core.Result, layout); err != nil {
		s.fail(w, "render error", err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg.Bytes())
}

// coreResponse is the /api/core payload.
type coreResponse struct {
	*journal.Core
	Layout Layout `json:"layout"`
}

func (s *Server) handleCore(w http.ResponseWriter, r *http.Request) {
	core, layout, err := s.load(r.Context())
	if err != nil {
		s.fail(w, "simulation error", err)
		return
	}
	writeJSON(w, http.StatusOK, coreResponse{Core: core, Layout: layout})
}

// GrainInfo describes the entry under a canvas pixel.
type GrainInfo struct {
	Column  int                `json:"x"`
	Row     int                `json:"y"`
	EntryID string             `json:"entryId"`
	Content string             `json:"content"`
	Date    time.Time          `json:"date"`
	Mineral models.MineralType `json:"mineralType"`
	HasGem  bool               `json:"hasGem"`
}

func (s *Server) handleGrain(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.Atoi(r.URL.Query().Get("x"))
	y, errY := strconv.Atoi(r.URL.Query().Get("y"))
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be integers", http.StatusBadRequest)
		return
	}

	core, layout, err := s.load(r.Context())
	if err != nil {
		s.fail(w, "simulation error", err)
		return
	}

	col, row := layout.HitTest(x, y)
	entry, ok := core.EntryAt(col, row)
	if !ok {
		http.Error(w, "no grain at that point", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, GrainInfo{
		Column:  col,
		Row:     row,
		EntryID: entry.ID,
		Content: entry.Content,
		Date:    entry.Date,
		Mineral: entry.MineralType,
		HasGem:  entry.HasGem,
	})
}

func (s *Server) handleGem(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing 'id' query parameter", http.StatusBadRequest)
		return
	}

	appraisal, err := s.journal.Appraise(r.Context(), id)
	switch {
	case errors.Is(err, journal.ErrNotFound):
		http.Error(w, "entry not found: "+id, http.StatusNotFound)
		return
	case errors.Is(err, journal.ErrNoGem):
		http.Error(w, "entry holds no gem: "+id, http.StatusBadRequest)
		return
	case err != nil:
		s.fail(w, "appraisal error", err)
		return
	}

	writeJSON(w, http.StatusOK, appraisal)
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, msg+": "+err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
