package server

import (
	"net/http"
	"strconv"
	"strings"
)

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		labels, err := s.store.ListLabels(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "label listing failed")
			return
		}
		views := make([]labelView, 0, len(labels))
		for _, label := range labels {
			views = append(views, labelView{ID: label.ID, Name: label.Name, Color: label.Color})
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"labels": views})
	case http.MethodPost:
		if _, ok := s.requireSession(w, r); !ok {
			return
		}
		var req struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		if !s.decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			s.writeError(w, http.StatusBadRequest, "name required")
			return
		}
		label, err := s.store.CreateLabel(r.Context(), req.Name, req.Color)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "label create failed")
			return
		}
		s.writeJSON(w, http.StatusCreated, labelView{ID: label.ID, Name: label.Name, Color: label.Color})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleLabelItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	suffix, ok := pathSuffix(r.URL.Path, "/api/labels/")
	if !ok || strings.Contains(suffix, "/") {
		s.writeError(w, http.StatusNotFound, "label not found")
		return
	}
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid label id")
		return
	}

	deleted, err := s.store.DeleteLabel(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "label delete failed")
		return
	}
	if !deleted {
		s.writeError(w, http.StatusNotFound, "label not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
