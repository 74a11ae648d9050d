package session

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/coffersTech/logdash/internal/engine"
	"github.com/coffersTech/logdash/internal/model"
	"github.com/coffersTech/logdash/internal/pkg/respond"
)

// Patch is a batch of view transitions. Absent fields are left alone.
// The page is applied first so that a filter change in the same patch
// still returns to page 1.
type Patch struct {
	Page       *int    `json:"page,omitempty"`
	Search     *string `json:"search,omitempty"`
	Level      *string `json:"level,omitempty"`
	Query      *string `json:"query,omitempty"`
	PageSize   *int    `json:"page_size,omitempty"`
	Sort       *string `json:"sort,omitempty"`
	ToggleSort bool    `json:"toggle_sort,omitempty"`
}

// Apply runs the transitions against s.
func (p Patch) Apply(s engine.ViewState) (engine.ViewState, error) {
	var err error
	if p.Page != nil {
		s = s.WithPage(*p.Page)
	}
	if p.Search != nil {
		s = s.WithSearch(*p.Search)
	}
	if p.Level != nil {
		level := model.Level("")
		if *p.Level != "" {
			level = model.NormalizeLevel(*p.Level)
		}
		s = s.WithLevel(level)
	}
	if p.Query != nil {
		if s, err = s.WithQuery(*p.Query); err != nil {
			return s, fmt.Errorf("invalid query: %w", err)
		}
	}
	if p.PageSize != nil {
		if s, err = s.WithPageSize(*p.PageSize); err != nil {
			return s, err
		}
	}
	if p.Sort != nil {
		order, err := engine.ParseSortOrder(*p.Sort)
		if err != nil {
			return s, err
		}
		s.SortOrder = order
	}
	if p.ToggleSort {
		s = s.ToggleSort()
	}
	return s, nil
}

// Response pairs a session with the view it currently renders.
type Response struct {
	Session Session     `json:"session"`
	View    engine.View `json:"view"`
}

// Server handles /api/views requests.
type Server struct {
	sessions *Store
	logs     *engine.Store
}

// NewServer creates a session server rendering views from logs.
func NewServer(sessions *Store, logs *engine.Store) *Server {
	return &Server{
		sessions: sessions,
		logs:     logs,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, sess Session) {
	view, err := engine.ComputeView(s.logs.ErrorLogs(), sess.State)
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	respond.JSON(w, status, Response{Session: sess, View: view})
}

// HandleCreate mounts a new view. An optional Patch body sets the initial state.
// POST /api/views
func (s *Server) HandleCreate(w http.ResponseWriter, r *http.Request) {
	state := engine.NewViewState()
	if r.ContentLength != 0 {
		var p Patch
		if err := respond.Decode(r, &p); err != nil {
			respond.BadRequest(w, "Invalid JSON")
			return
		}
		var err error
		if state, err = p.Apply(state); err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
	}

	sess := s.sessions.Create(state)
	log.Debugf("View session %s created", sess.ID)
	s.render(w, http.StatusCreated, sess)
}

// HandleGet renders a view session against the current collection.
// GET /api/views/:id
func (s *Server) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		respond.NotFound(w, "view session not found")
		return
	}
	s.render(w, http.StatusOK, sess)
}

// HandlePatch applies view transitions.
// PATCH /api/views/:id
func (s *Server) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")

	var p Patch
	if err := respond.Decode(r, &p); err != nil {
		respond.BadRequest(w, "Invalid JSON")
		return
	}

	sess, ok, err := s.sessions.Update(id, p.Apply)
	if !ok {
		respond.NotFound(w, "view session not found")
		return
	}
	if err != nil {
		respond.BadRequest(w, err.Error())
		return
	}
	s.render(w, http.StatusOK, sess)
}

// HandleDelete tears a view session down.
// DELETE /api/views/:id
func (s *Server) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	if !s.sessions.Delete(id) {
		respond.NotFound(w, "view session not found")
		return
	}
	log.Debugf("View session %s closed", id)
	w.WriteHeader(http.StatusNoContent)
}
