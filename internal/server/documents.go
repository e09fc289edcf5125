package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"corkboard/internal/logging"
	"corkboard/internal/realtime"
	"corkboard/internal/store"
)

const maxUploadBytes = 64 << 20

type documentView struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Position       int64    `json:"position"`
	Pending        bool     `json:"pending"`
	ContentType    string   `json:"contentType,omitempty"`
	ThumbnailPath  string   `json:"thumbnailPath,omitempty"`
	PagePaths      []string `json:"pagePaths,omitempty"`
	DarkPagePaths  []string `json:"darkPagePaths,omitempty"`
	MetadataStatus string   `json:"metadataStatus"`
	DarkModeStatus string   `json:"darkModeStatus"`
	OCRTitle       string   `json:"ocrTitle,omitempty"`
	Labels         []labelView `json:"labels,omitempty"`
}

type labelView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

func (s *Server) documentView(ctx context.Context, doc *store.Document) documentView {
	view := documentView{
		ID:             doc.ID,
		Title:          doc.Title,
		Position:       doc.Position,
		Pending:        doc.Pending,
		ContentType:    doc.ContentType,
		ThumbnailPath:  doc.ThumbnailPath,
		PagePaths:      doc.PagePaths,
		DarkPagePaths:  doc.DarkPagePaths,
		MetadataStatus: string(doc.MetadataStatus),
		DarkModeStatus: string(doc.DarkModeStatus),
		OCRTitle:       doc.OCRTitle,
	}
	labels, err := s.store.DocumentLabels(ctx, doc.ID)
	if err != nil {
		s.logger.Debug("label lookup failed", logging.Error(err))
		return view
	}
	for _, label := range labels {
		view.Labels = append(view.Labels, labelView{ID: label.ID, Name: label.Name, Color: label.Color})
	}
	return view
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listDocuments(w, r)
	case http.MethodPost:
		s.uploadDocument(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// listDocuments returns the board in position order. Staged documents are
// visible only to authenticated admins.
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	_, authed := s.trySession(r)

	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "document listing failed")
		return
	}

	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		if doc.Pending && !authed {
			continue
		}
		views = append(views, s.documentView(r.Context(), doc))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"documents": views})
}

func (s *Server) trySession(r *http.Request) (string, bool) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		return "", false
	}
	return sess.ID, true
}

// uploadDocument accepts a multipart upload, runs the fast processing stage
// before responding, and schedules the background stages. The document
// enters the board staged (pending) until explicitly activated.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	id := uuid.NewString()
	sourcePath := filepath.Join(s.cfg.Paths.UploadDir, id+filepath.Ext(header.Filename))
	out, err := os.Create(sourcePath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "upload staging failed")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(sourcePath)
		s.writeError(w, http.StatusInternalServerError, "upload staging failed")
		return
	}
	if err := out.Close(); err != nil {
		os.Remove(sourcePath)
		s.writeError(w, http.StatusInternalServerError, "upload staging failed")
		return
	}

	contentType := header.Header.Get("Content-Type")
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}

	doc := &store.Document{
		ID:          id,
		Title:       title,
		Pending:     true,
		ContentType: contentType,
		SourcePath:  sourcePath,
	}
	if err := s.store.InsertDocument(r.Context(), doc); err != nil {
		os.Remove(sourcePath)
		s.writeError(w, http.StatusInternalServerError, "document persist failed")
		return
	}

	// The fast stage must finish before this response is produced; its
	// failure is fatal to the upload.
	result, err := s.pipeline.Submit(r.Context(), doc)
	if err != nil {
		s.logger.Error("fast stage failed",
			logging.String("document_id", id),
			logging.Error(err))
		if _, derr := s.store.DeleteDocument(r.Context(), id); derr != nil {
			s.logger.Error("orphan document cleanup failed", logging.Error(derr))
		}
		os.Remove(sourcePath)
		s.writeError(w, http.StatusUnprocessableEntity, "document conversion failed")
		return
	}
	if err := s.store.SetRenderResult(r.Context(), id, result.ThumbnailPath, result.PagePaths); err != nil {
		s.logger.Error("render result persist failed", logging.Error(err))
	}
	doc.ThumbnailPath = result.ThumbnailPath
	doc.PagePaths = result.PagePaths

	s.hub.Dispatcher.Broadcast(realtime.EventArtifactUploaded, map[string]any{
		"id":    id,
		"title": doc.Title,
	}, realtime.ScopeAll)
	s.hub.Dispatcher.BroadcastAdminPush(realtime.EventArtifactStagedPending, map[string]any{
		"id":    id,
		"title": doc.Title,
	}, realtime.ScopeAll)

	s.writeJSON(w, http.StatusCreated, s.documentView(r.Context(), doc))
}

func (s *Server) handleDocumentItem(w http.ResponseWriter, r *http.Request) {
	suffix, ok := pathSuffix(r.URL.Path, "/api/documents/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	if suffix == "reorder" {
		s.reorderDocuments(w, r)
		return
	}
	if id, found := strings.CutSuffix(suffix, "/activate"); found {
		s.activateDocument(w, r, id)
		return
	}
	if strings.Contains(suffix, "/") {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getDocument(w, r, suffix)
	case http.MethodPatch:
		s.updateDocument(w, r, suffix)
	case http.MethodDelete:
		s.deleteDocument(w, r, suffix)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "document lookup failed")
		return
	}
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if doc.Pending {
		if _, ok := s.trySession(r); !ok {
			s.writeError(w, http.StatusNotFound, "document not found")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, s.documentView(r.Context(), doc))
}

// activateDocument lifts a staged document onto the shared board.
func (s *Server) activateDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	activated, err := s.store.ActivateDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "activation failed")
		return
	}
	if !activated {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	s.hub.Dispatcher.Broadcast(realtime.EventArtifactActivated, map[string]any{"id": id}, realtime.ScopeAll)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "activated"})
}

func (s *Server) reorderDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "ids required")
		return
	}

	if err := s.store.ReorderDocuments(r.Context(), req.IDs); err != nil {
		s.writeError(w, http.StatusInternalServerError, "reorder failed")
		return
	}

	s.hub.Dispatcher.Broadcast(realtime.EventArtifactsReordered, map[string]any{"ids": req.IDs}, realtime.ScopeAll)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	var req struct {
		Title    *string `json:"title"`
		LabelIDs []int64 `json:"labelIds"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "document lookup failed")
		return
	}
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		if err := s.store.UpdateTitle(r.Context(), id, strings.TrimSpace(*req.Title)); err != nil {
			s.writeError(w, http.StatusInternalServerError, "title update failed")
			return
		}
	}
	if req.LabelIDs != nil {
		if err := s.store.SetDocumentLabels(r.Context(), id, req.LabelIDs); err != nil {
			s.writeError(w, http.StatusInternalServerError, "label update failed")
			return
		}
	}

	updated, err := s.store.GetDocument(r.Context(), id)
	if err != nil || updated == nil {
		s.writeError(w, http.StatusInternalServerError, "document lookup failed")
		return
	}

	s.hub.Dispatcher.Broadcast(realtime.EventArtifactMetadata, map[string]any{"id": id}, realtime.ScopeAll)
	s.writeJSON(w, http.StatusOK, s.documentView(r.Context(), updated))
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "document lookup failed")
		return
	}
	if doc == nil {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	deleted, err := s.store.DeleteDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	if !deleted {
		// Raced away between the lookup and the delete.
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}

	if err := os.RemoveAll(filepath.Join(s.cfg.Paths.RenderDir, id)); err != nil {
		s.logger.Warn("render artifact cleanup failed", logging.Error(err))
	}
	if doc.SourcePath != "" {
		if err := os.Remove(doc.SourcePath); err != nil && !os.IsNotExist(err) {
			s.logger.Debug("source cleanup on delete failed", logging.Error(err))
		}
	}

	s.hub.Dispatcher.Broadcast(realtime.EventArtifactDeleted, map[string]any{"id": id}, realtime.ScopeAll)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
