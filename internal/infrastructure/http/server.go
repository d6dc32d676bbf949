// Package http provides the HTTP server infrastructure.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/0xcro3dile/cfohelper-go/internal/adapters/feed"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/ports"
	"github.com/0xcro3dile/cfohelper-go/internal/domain/usecases"
)

// LiveFeed is the snapshot source behind the /api/feed routes.
type LiveFeed interface {
	Latest(ctx context.Context, companyID string) (feed.Snapshot, error)
	Subscribe(companyID string) (<-chan feed.Snapshot, func(), error)
}

// Deps are the use cases and adapters the handlers call.
// Feed may be nil, which disables the /api/feed routes.
type Deps struct {
	Analysis  *usecases.AnalysisUseCase
	Forecasts *usecases.ForecastUseCase
	Ingest    *usecases.IngestUseCase
	Index     ports.RetrievalIndex
	Feed      LiveFeed
	Provider  string
}

// Options configure the listener.
type Options struct {
	Addr        string
	CORSOrigins []string
	// Heartbeat is the SSE keep-alive period.
	Heartbeat time.Duration
}

// Server is the HTTP server for the CFO helper API.
type Server struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	return &Server{deps: deps, opts: opts, logger: logger.Named("http")}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.opts.CORSOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/rag", func(r chi.Router) {
			r.Post("/context", s.handleUpsertContext)
			r.Get("/context/{companyID}", s.handleGetContext)
			r.Post("/scenario", s.handleCreateScenario)
			r.Get("/analyze/{scenarioID}", s.handleAnalyze)
			r.Get("/analysis/{analysisID}", s.handleGetAnalysis)
			r.Get("/summary/{scenarioID}", s.handleSummary)
		})

		r.Post("/scenarios/analyze", s.handleForecast)
		r.Get("/scenarios/history", s.handleForecastHistory)
		r.Get("/usage", s.handleUsage)

		r.Get("/knowledge/search", s.handleKnowledgeSearch)
		r.Post("/knowledge", s.handleKnowledgeAdd)

		if s.deps.Feed != nil {
			r.Get("/feed/{companyID}/latest", s.handleFeedLatest)
			r.Get("/feed/{companyID}/stream", s.handleFeedStream)
		}
	})

	return r
}

// Start runs the HTTP server until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the feed stream is long-lived and analyses
		// are bounded by the generation timeout.
	}

	s.logger.Info("server starting", zap.String("addr", s.opts.Addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":       "healthy",
		"service":      "CFO Helper API",
		"timestamp":    time.Now().UTC(),
		"llm_provider": s.deps.Provider,
	}
	if s.deps.Index != nil {
		body["indexed_documents"] = s.deps.Index.Len()
	}
	JSON(w, http.StatusOK, body)
}
