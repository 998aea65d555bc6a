package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/bankledger/internal/domain"
)

func TestNew(t *testing.T) {
	before := time.Now()
	s := New(domain.RoleUser, "12345")

	assert.Equal(t, domain.RoleUser, s.Role)
	assert.Equal(t, "12345", s.AccountID)
	assert.False(t, s.Superuser())
	assert.False(t, s.LoginAt.Before(before))

	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)

	// Each login gets its own identifier.
	assert.NotEqual(t, s.ID, New(domain.RoleUser, "12345").ID)
}

func TestNewSuperuser(t *testing.T) {
	s := NewSuperuser()
	assert.True(t, s.Superuser())
	assert.Equal(t, domain.RoleAdmin, s.Role)
}
