// Package server exposes validation and optimization of network manifests
// over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/born-ml/hetero/internal/compat"
	"github.com/born-ml/hetero/internal/logging"
	"github.com/born-ml/hetero/internal/manifest"
	"github.com/born-ml/hetero/internal/metrics"
	"github.com/born-ml/hetero/internal/optimize"
	"github.com/born-ml/hetero/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxManifestSize bounds request bodies.
const maxManifestSize = 1 << 20

// Config configures the handler.
type Config struct {
	ExportEnabled bool
	Logger        *slog.Logger
	// Registry receives the resolution metrics and is served on /metrics.
	// A fresh registry is used when nil.
	Registry *prometheus.Registry
}

type server struct {
	export  bool
	log     *slog.Logger
	metrics metrics.Recorder
}

// NewHandler builds the HTTP API:
//
//	POST /v1/validate   resolve a YAML manifest without inserting layers
//	POST /v1/optimize   resolve and bridge a YAML manifest
//	GET  /metrics       Prometheus metrics
//	GET  /healthz       liveness
//
// Both POST endpoints answer with a JSON report.
func NewHandler(cfg Config) (http.Handler, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	rec, err := metrics.NewPrometheus(reg)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	s := &server{export: cfg.ExportEnabled, log: log, metrics: rec}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.validate)
		r.Post("/optimize", s.optimize)
	})
	return r, nil
}

func (s *server) options() optimize.Options {
	return optimize.Options{ExportEnabled: s.export, Logger: s.log, Metrics: s.metrics}
}

// network reads and builds the manifest in the request body. It writes the
// error response itself and returns nil on failure.
func (s *server) network(w http.ResponseWriter, r *http.Request) *manifest.Network {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxManifestSize+1))
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return nil
	}
	if len(data) > maxManifestSize {
		s.fail(w, http.StatusRequestEntityTooLarge, fmt.Errorf("manifest exceeds %d bytes", maxManifestSize))
		return nil
	}
	m, err := manifest.ParseYAML(data)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return nil
	}
	net, err := m.Build()
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return nil
	}
	return net
}

func (s *server) validate(w http.ResponseWriter, r *http.Request) {
	net := s.network(w, r)
	if net == nil {
		return
	}
	res, err := optimize.Resolve(net.Graph, net.Backends, net.Registry, s.options())
	if err != nil {
		s.fail(w, http.StatusUnprocessableEntity, err)
		return
	}
	rep, err := report.New(net.Name, net.Graph, res, nil)
	if err != nil {
		s.fail(w, http.StatusUnprocessableEntity, err)
		return
	}
	status := http.StatusOK
	if res.HasError {
		status = http.StatusUnprocessableEntity
	}
	s.write(w, status, rep)
}

func (s *server) optimize(w http.ResponseWriter, r *http.Request) {
	net := s.network(w, r)
	if net == nil {
		return
	}
	out, err := optimize.Optimize(net.Graph, net.Backends, net.Registry, s.options())
	if err != nil && !errors.Is(err, optimize.ErrResolution) {
		s.fail(w, http.StatusUnprocessableEntity, err)
		return
	}

	var summary *compat.Summary
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	} else {
		summary = &out.Summary
	}
	rep, rerr := report.New(net.Name, net.Graph, out.Result, summary)
	if rerr != nil {
		s.fail(w, http.StatusInternalServerError, rerr)
		return
	}
	s.write(w, status, rep)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) fail(w http.ResponseWriter, status int, err error) {
	s.log.Warn("request rejected", "status", status, "err", err)
	s.write(w, status, errorResponse{Error: err.Error()})
}

func (s *server) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "err", err)
	}
}
