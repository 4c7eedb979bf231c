// Package httpapi exposes the cut workflow over HTTP: upload a file with a
// range, get the clip back as an attachment.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/forPelevin/mp4trim/internal/pipeline"
	"github.com/forPelevin/mp4trim/internal/ports"
	"github.com/forPelevin/mp4trim/internal/ports/adapters/download"
	"github.com/forPelevin/mp4trim/internal/types"
)

const (
	maxMemory       = 32 << 20
	rateLimitWindow = time.Minute
)

type Config struct {
	MaxUploadBytes  int64
	RateLimitPerMin int
	// ScratchDir holds uploads and clips while a request runs. Empty means os.TempDir.
	ScratchDir      string
}

type Deps struct {
	// NewWorkspace builds an isolated workspace whose clips go to sink.
	NewWorkspace func(sink ports.Sink) *pipeline.Workspace
	// EngineState reports the shared engine session state for health checks.
	EngineState  func() string
	Log          zerolog.Logger
}

type Server struct {
	cfg Config
	d   Deps

	// the engine works on fixed file names, so whole cuts are serialized
	cuts *semaphore.Weighted
}

func New(cfg Config, d Deps) *Server {
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	return &Server{cfg: cfg, d: d, cuts: semaphore.NewWeighted(1)}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimitPerMin > 0 {
			r.Use(rateLimit(s.cfg.RateLimitPerMin, rateLimitWindow))
		}
		r.Post("/cut", s.handleCut)
	})
	return r
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
		}),
	)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.d.Log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := "unknown"
	if s.d.EngineState != nil {
		state = s.d.EngineState()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": state})
}

func (s *Server) handleCut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.d.Log.With().Str("request_id", chimw.GetReqID(ctx)).Logger()

	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing file field")
		return
	}
	defer file.Close()

	work, err := os.MkdirTemp(s.cfg.ScratchDir, "mp4trim-upload-")
	if err != nil {
		log.Error().Err(err).Msg("scratch dir")
		writeError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	defer os.RemoveAll(work)

	name := uploadName(header.Filename)
	upload := filepath.Join(work, uuid.NewString()+filepath.Ext(name))
	if err := saveUpload(upload, file); err != nil {
		log.Error().Err(err).Msg("store upload")
		writeError(w, http.StatusInternalServerError, "internal", "")
		return
	}

	if err := s.cuts.Acquire(ctx, 1); err != nil {
		// client went away while queued
		return
	}
	res, err := s.cut(ctx, work, upload, name, r.FormValue("start"), r.FormValue("end"))
	s.cuts.Release(1)
	if err != nil {
		code, kind := statusFor(err)
		log.Warn().Err(err).Int("status", code).Msg("cut rejected")
		writeError(w, code, kind, detailFor(err))
		return
	}

	if err := serveClip(w, res); err != nil {
		log.Error().Err(err).Msg("send clip")
	}
}

// cut runs one workspace over the upload.
func (s *Server) cut(ctx context.Context, work, upload, name, start, end string) (types.CutResult, error) {
	ws := s.d.NewWorkspace(download.NewDir(filepath.Join(work, "out")))
	defer ws.Close()

	if err := ws.Loader.SelectFile(ctx, types.FileHandle{Path: upload, Name: name}); err != nil {
		return types.CutResult{}, err
	}
	if start != "" {
		ws.Board.SetStartField(start)
	}
	if end != "" {
		ws.Board.SetEndField(end)
	}
	return ws.Trimmer.Cut(ctx)
}

func uploadName(raw string) string {
	name := filepath.Base(strings.ReplaceAll(raw, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "video.mp4"
	}
	return name
}

func saveUpload(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func serveClip(w http.ResponseWriter, res types.CutResult) error {
	f, err := os.Open(res.Location)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "")
		return err
	}
	defer f.Close()

	w.Header().Set("Content-Type", res.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Output}))
	w.Header().Set("Content-Length", strconv.FormatInt(res.Bytes, 10))
	w.Header().Set("X-Cut-Id", res.ID)
	w.WriteHeader(http.StatusOK)
	_, err = io.Copy(w, f)
	return err
}
