package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"corkboard/internal/logging"
	"corkboard/internal/session"
)

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// checkCredentials compares the supplied credentials against the configured
// admin account in constant time.
func (s *Server) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Auth.AdminUser)) == 1
	hashOK := subtle.ConstantTimeCompare([]byte(hashPassword(password)), []byte(strings.ToLower(s.cfg.Auth.AdminPasswordHash))) == 1
	return userOK && hashOK
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	if !s.checkCredentials(req.Username, req.Password) {
		s.logger.Warn("login rejected", logging.String("username", req.Username))
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess := s.sessions.Create(req.Username)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token":     sess.ID,
		"expiresAt": sess.ExpiresAt.UnixMilli(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sess, err := s.sessionFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "session expired or invalid")
		return
	}
	s.sessions.Destroy(sess.ID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// sessionFromRequest resolves the session token carried in the
// Authorization header (Bearer scheme) or the X-Session-Token header.
func (s *Server) sessionFromRequest(r *http.Request) (*session.Session, error) {
	token := strings.TrimSpace(r.Header.Get("X-Session-Token"))
	if token == "" {
		auth := r.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	return s.sessions.Validate(token)
}

// requireSession gates a handler on a valid admin session.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "session expired or invalid")
		return nil, false
	}
	return sess, true
}
