package webhook

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hospitality-commands/internal/common/config"
	"hospitality-commands/internal/common/logger"
	"hospitality-commands/internal/dispatch"
	"hospitality-commands/internal/models"
	"hospitality-commands/internal/pipeline"
)

const (
	RunningMessage = "✅ Hospitality AI is running!"

	DefaultRequestTimeout = 30 * time.Second
	DefaultListLimit      = 20
	MaxListLimit          = 100
)

type Processor interface {
	Process(ctx context.Context, msg models.InboundMessage) *pipeline.Result
}

type SchedulerStatus interface {
	Running() bool
}

type Pinger interface {
	Ping(ctx context.Context) map[string]error
}

type Deps struct {
	Processor Processor
	Scheduler SchedulerStatus
	Stores    Pinger
	Lister    dispatch.RecentLister
	// DatabaseEnabled reports whether any dispatch store is configured.
	DatabaseEnabled bool
	ListLimit       int
	RequestTimeout  time.Duration
}

type Server struct {
	deps       Deps
	logger     logger.Logger
	router     chi.Router
	httpServer *http.Server
}

func NewServer(cfg config.ServerConfig, deps Deps, log logger.Logger) *Server {
	if deps.ListLimit <= 0 {
		deps.ListLimit = DefaultListLimit
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = DefaultRequestTimeout
	}

	s := &Server{
		deps:   deps,
		logger: log.With(map[string]interface{}{"component": "webhook"}),
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.GetDuration(cfg.ReadTimeout),
		WriteTimeout:      config.GetDuration(cfg.WriteTimeout),
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.deps.RequestTimeout))
		r.Get("/", s.handleIndex)
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Post("/whatsapp", s.handleWhatsApp)
		r.Get("/commands", s.handleCommands)
	})
	return r
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": RunningMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	scheduler := "stopped"
	if s.deps.Scheduler != nil && s.deps.Scheduler.Running() {
		scheduler = "running"
	}
	database := "disabled"
	if s.deps.DatabaseEnabled {
		database = "enabled"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "active",
		"services": map[string]string{
			"scheduler": scheduler,
			"database":  database,
		},
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true
	if s.deps.Stores != nil {
		for name, err := range s.deps.Stores.Ping(r.Context()) {
			if err != nil {
				ready = false
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "checks": checks})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": checks})
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// handleWhatsApp always answers 200 with a TwiML acknowledgment, whatever
// happened while processing.
func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	ack := pipeline.AckFailure
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic in whatsapp handler", map[string]interface{}{
				"panic":     fmt.Sprint(rec),
				"requestId": middleware.GetReqID(r.Context()),
			})
			ack = pipeline.AckFailure
		}
		writeTwiML(w, ack)
	}()

	if err := r.ParseForm(); err != nil {
		s.logger.Warn("invalid webhook form", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := models.NewInboundMessage(r.PostForm.Get("From"), r.PostForm.Get("Body"))
	if res := s.deps.Processor.Process(r.Context(), msg); res != nil {
		ack = res.Ack
	}
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lister == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "command listing is not configured"})
		return
	}

	limit := s.deps.ListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, MaxListLimit)
	}

	records, err := s.deps.Lister.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list commands", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list commands"})
		return
	}
	if records == nil {
		records = []models.CommandRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": records, "count": len(records)})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request", map[string]interface{}{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start).String(),
			"requestId": middleware.GetReqID(r.Context()),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(twimlResponse{Message: message})
}
