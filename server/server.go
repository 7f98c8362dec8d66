// Package server exposes key detection, the scale catalog and saved
// melodies over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/RyanBlaney/melodraw/algorithms/tonal"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/metrics"
	"github.com/RyanBlaney/melodraw/scales"
	"github.com/RyanBlaney/melodraw/store"
	"github.com/RyanBlaney/melodraw/transcode"
)

// MaxUploadBytes bounds the audio accepted by POST /v1/key.
const MaxUploadBytes = 64 << 20

// HTTP server timeouts.
const (
	readTimeout       = 60 * time.Second
	writeTimeout      = 120 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Decoder turns an uploaded audio file into samples.
type Decoder interface {
	DecodeReader(ctx context.Context, r io.Reader) (*transcode.AudioData, error)
}

// Options are the server's collaborators. Catalog and Detector are
// required. A nil Decoder disables POST /v1/key and a nil Library gets an
// in-memory one.
type Options struct {
	Catalog  *scales.Catalog
	Detector *tonal.KeyDetector
	Decoder  Decoder
	Library  *store.Library
	Metrics  *metrics.Recorder
	BPM      float64
	Logger   logging.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	catalog  *scales.Catalog
	detector *tonal.KeyDetector
	decoder  Decoder
	library  *store.Library
	metrics  *metrics.Recorder
	bpm      float64
	logger   logging.Logger
}

// New creates a server.
func New(opts Options) *Server {
	logger := logging.OrGlobal(opts.Logger)
	if opts.Library == nil {
		opts.Library = store.NewLibrary(store.NewMemoryKV(), logger)
	}
	if opts.BPM <= 0 {
		opts.BPM = 120
	}
	return &Server{
		catalog:  opts.Catalog,
		detector: opts.Detector,
		decoder:  opts.Decoder,
		library:  opts.Library,
		metrics:  opts.Metrics,
		bpm:      opts.BPM,
		logger:   logger.WithFields(logging.Fields{"component": "http_server"}),
	}
}

// Handler returns the routed, CORS-enabled handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}))

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/key", s.handleDetectKey).Methods(http.MethodPost)
	v1.HandleFunc("/scales", s.handleListScales).Methods(http.MethodGet)
	v1.HandleFunc("/scales/{name}", s.handleGetScale).Methods(http.MethodGet)
	v1.HandleFunc("/melodies", s.handleListMelodies).Methods(http.MethodGet)
	v1.HandleFunc("/melodies", s.handleSaveMelody).Methods(http.MethodPost)
	v1.HandleFunc("/melodies/{id}", s.handleGetMelody).Methods(http.MethodGet)
	v1.HandleFunc("/melodies/{id}", s.handleDeleteMelody).Methods(http.MethodDelete)
	v1.HandleFunc("/melodies/{id}/midi", s.handleExportMelody).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", logging.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(err, "Server shutdown failed")
		return err
	}
	s.logger.Info("Server stopped")
	return nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
