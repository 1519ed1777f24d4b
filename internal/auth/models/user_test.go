package models

import (
	"testing"
	"time"

	"nexus/pkg/domain"
	dErrors "nexus/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	now := time.Now()
	dept := domain.NewDepartmentID()

	t.Run("citizen", func(t *testing.T) {
		u, err := NewUser("Ada@Example.COM ", "hash", "Ada Lovelace", domain.RoleCitizen, nil, now)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", u.Email, "emails are normalized")
		assert.False(t, u.ID.IsNil())
		assert.Nil(t, u.DepartmentID)
	})

	t.Run("officer requires department", func(t *testing.T) {
		_, err := NewUser("o@example.com", "hash", "Officer", domain.RoleOfficer, nil, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("citizen may not carry department", func(t *testing.T) {
		_, err := NewUser("c@example.com", "hash", "Citizen", domain.RoleCitizen, &dept, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := NewUser("not-an-email", "hash", "Name", domain.RoleCitizen, nil, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestIsOfficerOf(t *testing.T) {
	dept := domain.NewDepartmentID()
	other := domain.NewDepartmentID()

	officer, err := NewUser("o@example.com", "hash", "Officer", domain.RoleOfficer, &dept, time.Now())
	require.NoError(t, err)

	assert.True(t, officer.IsOfficerOf(dept))
	assert.False(t, officer.IsOfficerOf(other))

	citizen, err := NewUser("c@example.com", "hash", "Citizen", domain.RoleCitizen, nil, time.Now())
	require.NoError(t, err)
	assert.False(t, citizen.IsOfficerOf(dept))
}
