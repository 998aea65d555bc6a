// Package session models a single authenticated operator session. The session
// is an explicit value passed to the menu loop, never ambient state.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
)

// SuperuserID marks the superuser session, which has no account record.
const SuperuserID = "superuser"

// Session identifies who is logged in for the duration of one menu loop.
type Session struct {
	ID        string
	Role      domain.Role
	AccountID string
	LoginAt   time.Time
}

// New starts a session for an authenticated account.
func New(role domain.Role, accountID string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Role:      role,
		AccountID: accountID,
		LoginAt:   time.Now(),
	}
}

// NewSuperuser starts a superuser session.
func NewSuperuser() *Session {
	return New(domain.RoleAdmin, SuperuserID)
}

// Superuser reports whether this session belongs to the superuser.
func (s *Session) Superuser() bool {
	return s.AccountID == SuperuserID
}
