package server

import (
	"net/http"
	"strings"

	"corkboard/internal/realtime"
	"corkboard/internal/store"
)

// handleSubscribe upserts a push subscription. Subscriptions registered
// under a valid admin session are flagged so admin-only deliveries can
// target them.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		s.writeError(w, http.StatusBadRequest, "endpoint and keys required")
		return
	}

	_, isAdmin := s.trySession(r)
	err := s.store.UpsertSubscription(r.Context(), &store.PushSubscription{
		Endpoint:  req.Endpoint,
		P256dhKey: req.Keys.P256dh,
		AuthKey:   req.Keys.Auth,
		IsAdmin:   isAdmin,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "subscription persist failed")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "subscribed"})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" {
		s.writeError(w, http.StatusBadRequest, "endpoint required")
		return
	}

	if _, err := s.store.DeleteSubscription(r.Context(), req.Endpoint); err != nil {
		s.writeError(w, http.StatusInternalServerError, "unsubscribe failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// handleAlert lets an admin broadcast an operator alert to every device,
// with push fallback for devices without an open connection.
func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.requireSession(w, r); !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message required")
		return
	}

	result := s.hub.Dispatcher.Broadcast(realtime.EventOperatorAlert, map[string]any{
		"message": req.Message,
	}, realtime.ScopeAll)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sent":   result.Sent,
		"failed": result.Failed,
	})
}
