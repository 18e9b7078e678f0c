// Package registration gates account creation behind an emailed one-time code.
package registration

import (
	"encoding/json"
	"time"
)

// SessionKey is where the pending registration lives in the session.
const SessionKey = "pending_registration"

// Session is the browsing-session key/value state that carries a pending
// registration between requests.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// PendingRegistration is the validated sign-up form waiting for its code.
// The password is kept only as a bcrypt hash.
type PendingRegistration struct {
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	StartedAt    time.Time `json:"started_at"`
}

func loadPending(s Session) (*PendingRegistration, bool) {
	raw, ok := s.Get(SessionKey)
	if !ok || raw == "" {
		return nil, false
	}
	var p PendingRegistration
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Email == "" {
		return nil, false
	}
	return &p, true
}

func storePending(s Session, p *PendingRegistration) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.Set(SessionKey, string(raw))
	return nil
}
