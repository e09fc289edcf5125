// Package session tracks authenticated admin logins. Sessions expire at a
// fixed weekly wall-clock cutoff rather than a sliding window, so every
// login made in the same week lapses at the same instant. Expiry is checked
// at use time; there is no background sweep.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"corkboard/internal/logging"
	"corkboard/internal/realtime"
)

// ErrExpiredOrInvalid covers malformed tokens, expired sessions, and tokens
// whose session was destroyed by an explicit logout.
var ErrExpiredOrInvalid = errors.New("session expired or invalid")

// Session is one authenticated login.
type Session struct {
	ID           string
	Subject      string
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time

	client *realtime.Client
}

// Client returns the bound connection, or nil when the session is unbound.
func (s *Session) Client() *realtime.Client {
	return s.client
}

// Messenger delivers a direct notice to one connection. Satisfied by the
// realtime dispatcher.
type Messenger interface {
	SendTo(c *realtime.Client, eventType realtime.EventType, data any) bool
}

// Store owns the token-to-session map.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cutoffDay  time.Weekday
	cutoffHour int
	messenger  Messenger
	logger     *slog.Logger
	now        func() time.Time
}

// NewStore builds a session store expiring at the given weekly cutoff.
// messenger may be nil; destroy then skips the final logged-out notice.
func NewStore(cutoffDay time.Weekday, cutoffHour int, messenger Messenger, logger *slog.Logger) *Store {
	return &Store{
		sessions:   make(map[string]*Session),
		cutoffDay:  cutoffDay,
		cutoffHour: cutoffHour,
		messenger:  messenger,
		logger:     logging.WithComponent(logger, "session"),
		now:        time.Now,
	}
}

// Create issues a fresh session for the subject. The expiry is the next
// occurrence of the weekly cutoff, never a duration from now.
func (s *Store) Create(subject string) *Session {
	now := s.now()
	session := &Session{
		ID:           uuid.NewString(),
		Subject:      subject,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    nextCutoff(now, s.cutoffDay, s.cutoffHour),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("session created",
		logging.String("subject", subject),
		logging.String("expires_at", session.ExpiresAt.Format(time.RFC3339)))
	return session
}

// Validate resolves a token to its live session. Expired sessions are
// removed as a side effect; recent activity never extends the cutoff.
func (s *Store) Validate(token string) (*Session, error) {
	if token == "" {
		return nil, ErrExpiredOrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, ErrExpiredOrInvalid
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, token)
		return nil, ErrExpiredOrInvalid
	}
	session.LastActivity = s.now()
	return session, nil
}

// Bind associates a connection with the session for out-of-band notices.
// A session may be valid yet unbound after a reconnect; it cannot receive
// direct notices until re-bound.
func (s *Store) Bind(sessionID string, c *realtime.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrExpiredOrInvalid
	}
	session.client = c
	if c != nil {
		c.SessionID = sessionID
	}
	return nil
}

// Unbind detaches the connection from a session without destroying it, for
// transports that close while the login remains valid. The binding is
// cleared only when it still points at c: a reconnect re-binds the session
// before the superseded socket's close handler runs, and that late handler
// must not detach the newer connection.
func (s *Store) Unbind(sessionID string, c *realtime.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok && session.client == c {
		session.client = nil
	}
}

// Destroy removes the session. A bound connection receives one final
// logged-out notice before unbinding.
func (s *Store) Destroy(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if session.client != nil && s.messenger != nil {
		s.messenger.SendTo(session.client, realtime.EventDeviceLoggedOut, map[string]any{
			"reason": "logged_out",
		})
	}
	session.client = nil
	s.logger.Info("session destroyed", logging.String("subject", session.Subject))
}

// Count returns the number of live sessions, for health reporting. Expired
// but unswept sessions are excluded.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	count := 0
	for _, session := range s.sessions {
		if now.Before(session.ExpiresAt) {
			count++
		}
	}
	return count
}

// nextCutoff returns the next occurrence of the weekly cutoff strictly
// after now.
func nextCutoff(now time.Time, day time.Weekday, hour int) time.Time {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	daysAhead := (int(day) - int(now.Weekday()) + 7) % 7
	cutoff = cutoff.AddDate(0, 0, daysAhead)
	if !cutoff.After(now) {
		cutoff = cutoff.AddDate(0, 0, 7)
	}
	return cutoff
}
