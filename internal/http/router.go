package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"live-transcriber/internal/app"
	"live-transcriber/internal/service/session"
)

//go:embed static
var staticFiles embed.FS

// Controller is the session surface exposed over HTTP.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Clear()
	Copy() error
	SetVisibility(hidden bool)
	Snapshot() session.Snapshot
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	return newRouter(application.Controller, application.Hub)
}

func newRouter(ctrl Controller, ws http.Handler) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if ctrl.Snapshot().State == session.StateUnsupported.String() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("speech recognition not supported"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Display feed and page
	r.Handle("/ws", ws)
	staticFS, _ := fs.Sub(staticFiles, "static")
	r.Handle("/*", http.FileServer(http.FS(staticFS)))

	// Session controls
	r.Route("/v1/session", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, ctrl.Snapshot())
		})
		r.Post("/start", func(w http.ResponseWriter, r *http.Request) {
			// The session outlives the request.
			if err := ctrl.Start(context.WithoutCancel(r.Context())); err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusAccepted, ctrl.Snapshot())
		})
		r.Post("/stop", func(w http.ResponseWriter, _ *http.Request) {
			ctrl.Stop()
			writeJSON(w, http.StatusOK, ctrl.Snapshot())
		})
		r.Post("/clear", func(w http.ResponseWriter, _ *http.Request) {
			ctrl.Clear()
			writeJSON(w, http.StatusOK, ctrl.Snapshot())
		})
		r.Post("/copy", func(w http.ResponseWriter, r *http.Request) {
			if err := ctrl.Copy(); err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, ctrl.Snapshot())
		})
		r.Post("/visibility", func(w http.ResponseWriter, r *http.Request) {
			var req visibilityRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
				return
			}
			ctrl.SetVisibility(req.Hidden)
			writeJSON(w, http.StatusOK, ctrl.Snapshot())
		})
	})

	return r
}

// writeError maps controller errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	var startErr *session.StartError
	var copyErr *session.CopyError
	switch {
	case errors.Is(err, session.ErrCapabilityUnavailable):
		code = http.StatusServiceUnavailable
	case errors.As(err, &startErr):
		code = http.StatusConflict
	case errors.As(err, &copyErr):
		code = http.StatusInternalServerError
	}

	log.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Str("requestId", middleware.GetReqID(r.Context())).
		Int("status", code).
		Msg("Session request failed")
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
