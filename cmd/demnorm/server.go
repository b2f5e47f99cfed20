package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/twpayne/go-dem"
)

// A server serves DEMs over HTTP.
type server struct {
	client   *dem.OpenTopographyClient
	presets  *dem.PresetStore
	pipeline *dem.Pipeline
	timeout  time.Duration
	logger   *slog.Logger
}

// newServer returns a new server. client may be nil, in which case requests
// that need the elevation data service fail.
func newServer(client *dem.OpenTopographyClient, presets *dem.PresetStore, pipeline *dem.Pipeline, timeout time.Duration, logger *slog.Logger) *server {
	return &server{
		client:   client,
		presets:  presets,
		pipeline: pipeline,
		timeout:  timeout,
		logger:   logger,
	}
}

// handler returns s's routes wrapped in request logging.
func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /getDem", s.handleGetDEM)
	mux.HandleFunc("GET /dem", s.handleDEM)
	mux.HandleFunc("GET /presets", s.handlePresets)
	mux.HandleFunc("GET /presets/{name}", s.handlePreset)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.loggingMiddleware(mux)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetDEM proxies a GeoTIFF from the elevation data service.
func (s *server) handleGetDEM(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	names := []string{"south", "north", "west", "east"}
	values := make([]float64, len(names))
	for i, name := range names {
		param := query.Get(name)
		if param == "" {
			s.writeError(w, r, http.StatusBadRequest, "missing required parameters: south, north, west, east")
			return
		}
		value, err := strconv.ParseFloat(param, 64)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s: invalid value %q", name, param))
			return
		}
		values[i] = value
	}
	bbox := dem.BoundingBox{
		South: values[0],
		North: values[1],
		West:  values[2],
		East:  values[3],
	}
	if !bbox.Valid() {
		s.writeError(w, r, http.StatusBadRequest, "invalid bounding box: "+bbox.String())
		return
	}
	if s.client == nil {
		s.writeError(w, r, http.StatusInternalServerError, "API key not configured")
		return
	}
	demType := query.Get("demtype")
	if demType == "" {
		demType = s.client.DEMType()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	data, err := s.client.FetchGeoTIFFWithDEMType(ctx, bbox, demType)
	if err != nil {
		s.writeFetchError(w, r, err)
		return
	}

	filename := fmt.Sprintf("dem_%s_%s_%s_%s.tif", query.Get("south"), query.Get("north"), query.Get("west"), query.Get("east"))
	w.Header().Set("Content-Type", "image/tiff")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.WarnContext(r.Context(), "write failed", "path", r.URL.Path, "err", err)
	}
}

// handleDEM fetches, normalizes, and returns the DEM of a square area.
func (s *server) handleDEM(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	center, sideMeters, err := parseQuery([]string{query.Get("lat"), query.Get("lon"), query.Get("side")})
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "lat, lon, and side are required numbers: "+err.Error())
		return
	}
	bbox, err := dem.NewBoundingBox(center, sideMeters)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if s.client == nil {
		s.writeError(w, r, http.StatusInternalServerError, "API key not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	raw, err := s.client.FetchRaster(ctx, bbox)
	if err != nil {
		s.writeFetchError(w, r, err)
		return
	}
	normalizedDEM, err := s.pipeline.Normalize(raw, queryBool(query.Get("depth")))
	if err != nil {
		s.writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	s.writeBoundingBox(w, bbox)
	s.writeDEM(w, r, normalizedDEM)
}

func (s *server) handlePresets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.presets.Presets())
}

func (s *server) handlePreset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	preset, err := s.presets.Preset(name)
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	switch normalizedDEM, err := s.presets.Load(r.Context(), name, queryBool(r.URL.Query().Get("depth"))); {
	case errors.Is(err, fs.ErrNotExist):
		s.writeError(w, r, http.StatusNotFound, err.Error())
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		if bbox, err := preset.BoundingBox(); err == nil {
			s.writeBoundingBox(w, bbox)
		}
		s.writeDEM(w, r, normalizedDEM)
	}
}

func (s *server) writeBoundingBox(w http.ResponseWriter, bbox dem.BoundingBox) {
	w.Header().Set("X-DEM-South", formatFloat(bbox.South))
	w.Header().Set("X-DEM-North", formatFloat(bbox.North))
	w.Header().Set("X-DEM-West", formatFloat(bbox.West))
	w.Header().Set("X-DEM-East", formatFloat(bbox.East))
}

// writeDEM writes normalizedDEM's texture payload with its size and range
// in headers.
func (s *server) writeDEM(w http.ResponseWriter, r *http.Request, normalizedDEM *dem.NormalizedDEM) {
	payload, err := normalizedDEM.AppendBinary(nil)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	stats := normalizedDEM.Stats()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.Header().Set("X-DEM-Size", strconv.Itoa(normalizedDEM.Size))
	w.Header().Set("X-DEM-Min", formatFloat(stats.Min))
	w.Header().Set("X-DEM-Max", formatFloat(stats.Max))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		s.logger.WarnContext(r.Context(), "write failed", "path", r.URL.Path, "err", err)
	}
}

// writeFetchError writes an error from the elevation data service.
func (s *server) writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	var httpStatusError *dem.HTTPStatusError
	switch {
	case errors.As(err, &httpStatusError):
		s.writeError(w, r, httpStatusError.Code, httpStatusError.Body)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, err.Error())
	default:
		s.writeError(w, r, http.StatusBadGateway, err.Error())
	}
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WarnContext(r.Context(), "encode failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, r, status, map[string]string{"error": msg})
}

// statusWriter records the status code and number of bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.bytes,
			"duration", time.Since(start),
		)
	})
}

func queryBool(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
