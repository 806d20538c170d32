package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogapi/internal/models"
)

const testSecret = "a-test-secret-that-is-long-enough-123"

func testUser() *models.User {
	return &models.User{
		ID:    uuid.MustParse("3d9b1f5e-7c2a-4e6b-8f0d-1a2b3c4d5e6f"),
		Name:  "John Doe",
		Email: "johndoe@mail.com",
		Role:  models.RoleAdmin,
	}
}

func TestNewIssuerRejectsBadInput(t *testing.T) {
	_, err := NewIssuer("", "blogapi", time.Hour)
	assert.Error(t, err)

	_, err = NewIssuer(testSecret, "blogapi", 0)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	iss, err := NewIssuer(testSecret, "blogapi", time.Hour)
	require.NoError(t, err)

	u := testUser()
	token, exp, err := iss.Issue(u)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, u.Name, claims.Name)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, u.ID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "blogapi", claims.Issuer)
}

func TestIssueUniqueTokenIDs(t *testing.T) {
	iss, err := NewIssuer(testSecret, "blogapi", time.Hour)
	require.NoError(t, err)

	a, _, err := iss.Issue(testUser())
	require.NoError(t, err)
	b, _, err := iss.Issue(testUser())
	require.NoError(t, err)

	ca, err := iss.Verify(a)
	require.NoError(t, err)
	cb, err := iss.Verify(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestVerifyExpired(t *testing.T) {
	iss, err := NewIssuer(testSecret, "blogapi", time.Minute)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	iss.now = func() time.Time { return past }
	token, _, err := iss.Issue(testUser())
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejects(t *testing.T) {
	iss, err := NewIssuer(testSecret, "blogapi", time.Hour)
	require.NoError(t, err)
	good, _, err := iss.Issue(testUser())
	require.NoError(t, err)

	other, err := NewIssuer("another-secret-that-is-long-enough-456", "blogapi", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue(testUser())
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"uid": testUser().ID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noIdentity, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.token"},
		{name: "wrong secret", token: foreign},
		{name: "alg none", token: none},
		{name: "tampered payload", token: tamper(good)},
		{name: "missing identity", token: noIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iss.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

// tamper flips one character of the payload segment.
func tamper(token string) string {
	parts := strings.Split(token, ".")
	p := []byte(parts[1])
	if p[len(p)-1] == 'A' {
		p[len(p)-1] = 'B'
	} else {
		p[len(p)-1] = 'A'
	}
	parts[1] = string(p)
	return strings.Join(parts, ".")
}
