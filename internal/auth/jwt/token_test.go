package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fan-quiz-service/internal/domain"
)

var fan = domain.User{ID: "u-1", Email: "fan@example.com", DisplayName: "Raúl González"}

func TestIssueAndValidate(t *testing.T) {
	m := NewManager(TokenConfig{Secret: []byte("secret")})

	token, err := m.Issue(fan)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, fan, claims.User())
	assert.Equal(t, "fan-quiz-service", claims.Issuer)
	assert.Equal(t, time.Hour, m.TTL())
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	token, err := NewManager(TokenConfig{Secret: []byte("other")}).Issue(fan)
	require.NoError(t, err)

	_, err = NewManager(TokenConfig{Secret: []byte("secret")}).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpired(t *testing.T) {
	m := NewManager(TokenConfig{Secret: []byte("secret"), TTL: time.Minute})
	issuedAt := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issuedAt }
	token, err := m.Issue(fan)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager(TokenConfig{Secret: []byte("secret")}).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateGarbage(t *testing.T) {
	_, err := NewManager(TokenConfig{Secret: []byte("secret")}).Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
