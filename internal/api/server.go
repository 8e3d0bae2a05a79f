package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/bitcrush/internal/artifact"
	"github.com/JakeFAU/bitcrush/internal/metrics"
	"github.com/JakeFAU/bitcrush/internal/service"
)

const genericErrorMessage = "Something went wrong, sorry!"

// Crusher is the service surface the handlers depend on.
type Crusher interface {
	Submit(ctx context.Context, input []byte) (artifact.ID, error)
	Retrieve(token string) (artifact.Artifact, error)
	Len() int
}

// Options tune the HTTP surface.
type Options struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// Server wires HTTP handlers to the crush service.
type Server struct {
	router  chi.Router
	crusher Crusher
	pages   *pageSet
	opts    Options
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(crusher Crusher, opts Options, logger *zap.Logger) (*Server, error) {
	if crusher == nil {
		return nil, errors.New("crusher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	logger.Info("templates compiled", zap.Int("count", pages.len()))

	s := &Server{
		crusher: crusher,
		pages:   pages,
		opts:    opts,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(opts.RequestTimeout))
		r.Get("/", s.page(pageIndex))
		r.Get("/style.css", s.page(pageStyle))
		r.Get("/main.js", s.page(pageScript))
		r.Post("/upload", s.upload)
		r.Get("/images/{name}", s.image)
	})

	s.router = r
	return s, nil
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "images": s.crusher.Len()})
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, contentType, err := s.pages.render(name)
		if err != nil {
			s.logger.Error("while serving template", zap.String("template", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, genericErrorMessage)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			s.logger.Debug("write page failed", zap.String("template", name), zap.Error(err))
		}
	}
}

type uploadResponse struct {
	Src string `json:"src"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		s.logger.Warn("read upload failed", zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return
	}

	id, err := s.crusher.Submit(r.Context(), body)
	if err != nil {
		s.fail(w, r, "upload failed", err)
		return
	}
	src := artifact.Src(id)
	s.logger.Info("upload crushed", zap.String("src", src), zap.String("request_id", requestIDFrom(r.Context())))
	writeJSON(w, http.StatusOK, uploadResponse{Src: src})
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, err := s.crusher.Retrieve(name)
	if err != nil {
		s.fail(w, r, "image lookup failed", err)
		return
	}
	s.logger.Debug("found image", zap.String("name", name))
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(a.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Data); err != nil {
		s.logger.Debug("write image failed", zap.String("name", name), zap.Error(err))
	}
}

// fail logs err with the request id and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, public := statusFor(err)
	fields := []zap.Field{
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, fields...)
	} else {
		s.logger.Info(msg, fields...)
	}
	writeError(w, status, public)
}

// statusFor maps a service error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, artifact.ErrInvalidID):
		return http.StatusBadRequest, "invalid image id"
	case errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound, "image not found"
	case errors.Is(err, artifact.ErrDecode):
		return http.StatusBadRequest, "could not decode image"
	case errors.Is(err, artifact.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "image too large"
	case errors.Is(err, service.ErrUnavailable),
		errors.Is(err, artifact.ErrQueueClosed),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "transform queue busy"
	default:
		return http.StatusInternalServerError, genericErrorMessage
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
