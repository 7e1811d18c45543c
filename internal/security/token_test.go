package security

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"equiploan-backend/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, 60)

	token, err := tm.Generate(7, RoleAdmin)
	assert.NoError(t, err)

	claims, err := tm.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, int32(7), claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.True(t, claims.IsAdmin())
}

func TestValidate_WrongSecret(t *testing.T) {
	tm := NewTokenManager(testSecret, 60)
	other := NewTokenManager("ffffffffffffffffffffffffffffffff", 60)

	token, err := tm.Generate(7, RoleMember)
	assert.NoError(t, err)

	_, err = other.Validate(token)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestValidate_ExpiredToken(t *testing.T) {
	tm := NewTokenManager(testSecret, -1)

	token, err := tm.Generate(7, RoleMember)
	assert.NoError(t, err)

	_, err = tm.Validate(token)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestValidate_Garbage(t *testing.T) {
	tm := NewTokenManager(testSecret, 60)

	_, err := tm.Validate("not-a-token")
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}
