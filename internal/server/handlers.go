package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mfeltner/lattice/pkg/archive"
	"github.com/mfeltner/lattice/pkg/errors"
	"github.com/mfeltner/lattice/pkg/graph"
	"github.com/mfeltner/lattice/pkg/grouping"
	"github.com/mfeltner/lattice/pkg/view"
)

const (
	maxBodyBytes     = 32 << 20
	archiveListLimit = 50
)

// handleSnapshot ingests a complete snapshot, archives it, and applies
// it to the view.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := graph.ReadSnapshot(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "decoding snapshot"))
		return
	}

	var archiveID string
	if s.opts.Archive != nil {
		archiveID, err = s.opts.Archive.Put(r.Context(), snap)
		if err != nil {
			// Archiving is best effort; the layout still proceeds.
			s.opts.Logger.Warn("archiving snapshot failed", "error", err)
			archiveID = ""
		}
	}

	if err := s.opts.View.ApplySnapshot(r.Context(), snap); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"nodes":      len(snap.Nodes),
		"edges":      len(snap.Edges),
		"archive_id": archiveID,
	})
}

// handleLayout returns the committed layout.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.View.Committed())
}

func (s *Server) handleToggleGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	collapsed := s.opts.View.ToggleGroup(r.Context(), groupID)
	writeJSON(w, http.StatusOK, map[string]any{"group": groupID, "collapsed": collapsed})
}

func (s *Server) handleExpandAggregate(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "id")
	if err := s.opts.View.ExpandAggregate(r.Context(), nodeID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"node": nodeID, "expanded": true})
}

func (s *Server) handleCollapseAggregate(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "id")
	if err := s.opts.View.CollapseAggregate(r.Context(), nodeID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"node": nodeID, "expanded": false})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.opts.View.Retry(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

type modeRequest struct {
	Grouping string `json:"grouping,omitempty"`
	View     string `json:"view,omitempty"`
}

// handleMode switches the grouping mode, the view mode, or both.
func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidMode, err, "decoding mode request"))
		return
	}

	if req.Grouping != "" {
		if err := s.opts.View.SetGroupingMode(r.Context(), grouping.Mode(req.Grouping)); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.View != "" {
		if err := s.opts.View.SetViewMode(r.Context(), view.Mode(req.View)); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"grouping": string(s.opts.View.GroupingMode()),
		"view":     string(s.opts.View.ViewMode()),
	})
}

func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	limit := archiveListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, errors.New(errors.ErrCodeInvalidConfig, "invalid limit %q", raw))
			return
		}
		limit = n
	}

	entries, err := s.opts.Archive.List(r.Context(), limit)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "listing archive"))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleArchiveGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := s.opts.Archive.Get(r.Context(), id)
	if stderrors.Is(err, archive.ErrNotFound) {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no archived snapshot %q", id))
		return
	}
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "reading archive"))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleStream pushes every committed layout to the client as a
// server-sent event, starting with the current one.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := s.opts.View.Subscribe()
	defer cancel()

	if err := writeEvent(w, s.opts.View.Committed()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case c, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, c); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, c view.Committed) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: layout\ndata: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error codes onto HTTP statuses and emits a JSON error
// body with the structured code.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidMode, errors.ErrCodeInvalidSnapshot, errors.ErrCodeInvalidConfig:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeGroupNotFound, errors.ErrCodeAggregateNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeSolverTimeout:
		status = http.StatusGatewayTimeout
	}

	writeJSON(w, status, map[string]string{
		"code":  string(errors.GetCode(err)),
		"error": errors.UserMessage(err),
	})
}
