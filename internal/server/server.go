// internal/server/server.go
// Package server exposes comparison and benchmark runs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mwiater/nidsbench/internal/appconfig"
	"github.com/mwiater/nidsbench/internal/benchmark"
	"github.com/mwiater/nidsbench/internal/comparison"
	"github.com/mwiater/nidsbench/internal/dataset"
	"github.com/mwiater/nidsbench/internal/inference"
	"golang.org/x/time/rate"
)

const (
	maxCompareBytes = 32 << 20
	maxUploadBytes  = 100 << 20
)

// Benchmarker runs benchmarks and health checks against the inference service.
type Benchmarker interface {
	Run(ctx context.Context, ds *dataset.Dataset, opts benchmark.Options) (*benchmark.Record, error)
	Health(ctx context.Context) benchmark.HealthReport
}

// ErrResp is the body of every failed request.
type ErrResp struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// CompareRequest carries two already-scored runs in any shape inference.DecodeRun accepts.
type CompareRequest struct {
	RunA json.RawMessage `json:"runA"`
	RunB json.RawMessage `json:"runB"`
}

// Server holds the HTTP handlers.
type Server struct {
	mu      sync.Mutex
	cfg     *appconfig.Config
	runner  Benchmarker
	limiter *rate.Limiter
	// persist writes each benchmark record to the results directory.
	persist bool
}

// New builds a Server. Benchmarks are limited to cfg.BenchmarkRatePerMinute.
func New(cfg *appconfig.Config, runner Benchmarker, persist bool) *Server {
	limit := rate.Inf
	if interval := cfg.BenchmarkInterval(); interval > 0 {
		limit = rate.Every(interval)
	}
	return &Server{
		cfg:     cfg,
		runner:  runner,
		limiter: rate.NewLimiter(limit, 1),
		persist: persist,
	}
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/compare", s.handleCompare)
	r.Route("/benchmark", func(b chi.Router) {
		b.Post("/", s.handleBenchmark)
		b.Get("/health", s.handleHealth)
		b.Get("/models-info", s.handleModelsInfo)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := decodeJSON(w, r, &req, maxCompareBytes); err != nil {
		log.Printf("compare decode error: %v", err)
		writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: "invalid JSON: " + err.Error()})
		return
	}

	runA, errA := decodeRun("modelA", req.RunA)
	runB, errB := decodeRun("modelB", req.RunB)
	if err := errors.Join(errA, errB); err != nil {
		log.Printf("compare decode error: %v", err)
		writeEngineError(w, err, http.StatusBadRequest)
		return
	}

	rec, err := benchmark.Build(runA, runB, nil)
	if err != nil {
		log.Printf("compare error: %v", err)
		writeEngineError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec.Report)
}

func decodeRun(fallback string, raw json.RawMessage) (comparison.ModelRun, error) {
	if len(raw) == 0 {
		return comparison.ModelRun{}, fmt.Errorf("%w: %s is required", inference.ErrInvalidPayload, fallback)
	}
	run, err := inference.DecodeRun("", raw)
	if err != nil {
		return comparison.ModelRun{}, err
	}
	if run.Model == "" {
		run.Model = fallback
	}
	return run, nil
}

// writeEngineError answers 422 for comparison failures and otherStatus for anything else.
func writeEngineError(w http.ResponseWriter, err error, otherStatus int) {
	if kind := errorKind(err); kind != "" {
		writeJSON(w, http.StatusUnprocessableEntity, ErrResp{OK: false, Error: err.Error(), Kind: kind})
		return
	}
	writeJSON(w, otherStatus, ErrResp{OK: false, Error: err.Error()})
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	log.Printf("benchmark request from %s", r.RemoteAddr)
	sampleSize := s.cfg.SampleSize
	if raw := r.URL.Query().Get("sample_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > appconfig.MaxSampleSize {
			writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: fmt.Sprintf("sample_size must be an integer between 1 and %d", appconfig.MaxSampleSize)})
			return
		}
		sampleSize = n
	}
	perClass := 0
	if raw := r.URL.Query().Get("per_class"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > appconfig.MaxSampleSize {
			writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: fmt.Sprintf("per_class must be an integer between 1 and %d", appconfig.MaxSampleSize)})
			return
		}
		perClass = n
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: "multipart field \"file\" is required: " + err.Error()})
		return
	}
	defer file.Close()
	if err := dataset.CheckFilename(header.Filename); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: "Invalid file format. Please upload a CSV file."})
		return
	}
	ds, err := dataset.Load(file, header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: err.Error()})
		return
	}
	log.Printf("benchmark loaded %d rows from %s", ds.Len(), ds.Name)

	// Only requests that would reach the models spend a token.
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, ErrResp{OK: false, Error: "benchmark rate limit exceeded, try again later"})
		return
	}

	// One benchmark at a time; the models are the bottleneck.
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.runner.Run(r.Context(), ds, benchmark.Options{SampleSize: sampleSize, Seed: s.cfg.Seed, PerClass: perClass})
	if err != nil {
		log.Printf("benchmark error: %v", err)
		writeEngineError(w, err, http.StatusBadGateway)
		return
	}
	if s.persist {
		if _, err := benchmark.WriteRecord(s.cfg.ResultsPath(), s.cfg.OutputFormat(), rec); err != nil {
			log.Printf("benchmark write error: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.runner.Health(r.Context())
	status := http.StatusOK
	if report.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleModelsInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": s.cfg.Service.BaseURL,
		"models":  s.cfg.Models,
	})
}

// errorKind names the comparison failure behind err, or "" for anything else.
func errorKind(err error) string {
	switch {
	case errors.Is(err, comparison.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, comparison.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, comparison.ErrMalformedResult):
		return "malformed_result"
	default:
		return ""
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
