// Package server exposes the dashboard over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/klauspost/compress/gzhttp"
	"github.com/op/go-logging"
	"golang.org/x/crypto/bcrypt"

	"github.com/coffersTech/logdash/internal/controller"
	"github.com/coffersTech/logdash/internal/engine"
	"github.com/coffersTech/logdash/internal/model"
	"github.com/coffersTech/logdash/internal/pkg/failure"
	"github.com/coffersTech/logdash/internal/pkg/respond"
	"github.com/coffersTech/logdash/internal/session"
)

var log = logging.MustGetLogger("server")

// multipartMemory is how much of an upload is held in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

// Options configures a DashboardServer.
type Options struct {
	WebDir    string
	TokenHash string
	Chart     engine.ChartOptions
}

// DashboardServer serves the dashboard API, the notification socket and
// the static front end.
type DashboardServer struct {
	store     *engine.Store
	ctrl      *controller.Controller
	sessions  *session.Server
	ws        http.Handler
	webDir    string
	tokenHash []byte
	chart     engine.ChartOptions
	srv       *http.Server
}

// New wires a server. ws serves the /ws endpoint.
func New(store *engine.Store, ctrl *controller.Controller, sessions *session.Server, ws http.Handler, opts Options) *DashboardServer {
	s := &DashboardServer{
		store:    store,
		ctrl:     ctrl,
		sessions: sessions,
		ws:       ws,
		webDir:   opts.WebDir,
		chart:    opts.Chart,
		srv:      &http.Server{ReadHeaderTimeout: 10 * time.Second},
	}
	if opts.TokenHash != "" {
		s.tokenHash = []byte(opts.TokenHash)
	}
	return s
}

// Handler builds the routing tree.
func (s *DashboardServer) Handler() http.Handler {
	router := httprouter.New()
	api := func(method, path string, h http.HandlerFunc) {
		router.Handler(method, path, s.AuthMiddleware(h))
	}

	api(http.MethodPost, "/api/upload", s.handleUpload)
	api(http.MethodPost, "/api/refresh", s.handleRefresh)
	api(http.MethodGet, "/api/logs", s.handleLogs)
	api(http.MethodGet, "/api/stats", s.handleStats)
	api(http.MethodGet, "/api/charts", s.handleCharts)
	api(http.MethodGet, "/api/status", s.handleStatus)

	api(http.MethodPost, "/api/views", s.sessions.HandleCreate)
	api(http.MethodGet, "/api/views/:id", s.sessions.HandleGet)
	api(http.MethodPatch, "/api/views/:id", s.sessions.HandlePatch)
	api(http.MethodDelete, "/api/views/:id", s.sessions.HandleDelete)

	if s.ws != nil {
		router.Handler(http.MethodGet, "/ws", s.AuthMiddleware(s.ws))
	}

	if s.webDir != "" {
		router.NotFound = http.FileServer(http.Dir(s.webDir))
	}

	// The websocket upgrade needs the raw ResponseWriter.
	gz := gzhttp.GzipHandler(router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until Shutdown.
func (s *DashboardServer) Start(addr string) error {
	s.srv.Addr = addr
	s.srv.Handler = s.Handler()

	log.Infof("Listening on %s", addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server. A later Start returns at once.
func (s *DashboardServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// AuthMiddleware checks the bearer token against the configured bcrypt hash.
// With no hash configured every request passes.
func (s *DashboardServer) AuthMiddleware(next http.Handler) http.Handler {
	if s.tokenHash == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}

		if token == "" || bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)) != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="logdash"`)
			respond.JSON(w, http.StatusUnauthorized, respond.ErrorBody{
				Error:   "unauthorized",
				Message: "Missing or invalid token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleUpload accepts a multipart form with the log file in field "file".
func (s *DashboardServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respond.Failure(w, failure.New(failure.KindRead, "server.upload", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Failure(w, failure.New(failure.KindRead, "server.upload", err))
		return
	}
	defer file.Close()

	res, err := s.ctrl.Upload(r.Context(), header.Filename, file)
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// handleRefresh is the manual refresh button: it clears the new-error badge
// and refreshes.
func (s *DashboardServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.ctrl.AcknowledgeErrors()
	res, err := s.ctrl.Refresh(r.Context())
	if err != nil {
		respond.Failure(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

type logsResponse struct {
	engine.View
	State engine.ViewState `json:"state"`
}

// handleLogs computes a view from query parameters.
// GET /api/logs?search=&level=&sort=&page=&page_size=&q=
func (s *DashboardServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	state, err := viewStateFromQuery(r)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}

	view, err := engine.ComputeView(s.store.ErrorLogs(), state)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, logsResponse{View: view, State: state})
}

func viewStateFromQuery(r *http.Request) (engine.ViewState, error) {
	q := r.URL.Query()
	state := engine.NewViewState().WithSearch(q.Get("search"))

	if lvl := q.Get("level"); lvl != "" {
		state = state.WithLevel(model.NormalizeLevel(lvl))
	}

	order, err := engine.ParseSortOrder(q.Get("sort"))
	if err != nil {
		return state, err
	}
	state.SortOrder = order

	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return state, err
		}
		if state, err = state.WithPageSize(n); err != nil {
			return state, err
		}
	}

	if state, err = state.WithQuery(q.Get("q")); err != nil {
		return state, err
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return state, err
		}
		state = state.WithPage(page)
	}
	return state, nil
}

type statsResponse struct {
	engine.Summary
	NewErrors  int        `json:"new_errors"`
	BatchID    string     `json:"batch_id,omitempty"`
	Source     string     `json:"source,omitempty"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`
}

func (s *DashboardServer) handleStats(w http.ResponseWriter, r *http.Request) {
	cur, prev := s.store.Snapshot()
	resp := statsResponse{
		Summary:   engine.Summarize(cur, prev),
		NewErrors: s.ctrl.NewErrorCount(),
		BatchID:   cur.BatchID(),
		Source:    cur.Source(),
	}
	if cur != nil {
		at := cur.IngestedAt()
		resp.IngestedAt = &at
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (s *DashboardServer) handleCharts(w http.ResponseWriter, r *http.Request) {
	opts := s.chart
	if g := r.URL.Query().Get("granularity"); g != "" {
		parsed, err := engine.ParseGranularity(g)
		if err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
		opts.Granularity = parsed
	}
	respond.JSON(w, http.StatusOK, engine.BuildCharts(s.store.ErrorLogs(), opts))
}

func (s *DashboardServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, s.ctrl.Status())
}
