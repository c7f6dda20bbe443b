package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oreanmos/copepod-go/internal/auth"
	"github.com/oreanmos/copepod-go/internal/constants"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return token
}

func TestExpiryFromJWT(t *testing.T) {
	t.Parallel()

	expiresAt := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := auth.ExpiryFromJWT(mintToken(t, jwt.MapClaims{"sub": "u1", "exp": expiresAt.Unix()}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, expiresAt.Equal(*got))
}

func TestExpiryFromJWT_ExpiredTokenStillDecodes(t *testing.T) {
	t.Parallel()

	expiresAt := time.Now().Add(-time.Hour).Truncate(time.Second)

	got, err := auth.ExpiryFromJWT(mintToken(t, jwt.MapClaims{"exp": expiresAt.Unix()}))
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(*got))
}

func TestExpiryFromJWT_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "opaque token", token: "opaque-session-token", wantErr: constants.ErrInvalidJWTFormat},
		{name: "garbage segments", token: "a.b.c", wantErr: constants.ErrInvalidJWTFormat},
		{name: "no exp claim", token: "", wantErr: constants.ErrNoExpirationClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token := tt.token
			if token == "" {
				token = mintToken(t, jwt.MapClaims{"sub": "u1"})
			}

			_, err := auth.ExpiryFromJWT(token)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeClaims(t *testing.T) {
	t.Parallel()

	claims, err := auth.DecodeClaims(mintToken(t, jwt.MapClaims{"sub": "u1", "email": "ada@example.com", "org": "o1"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "ada@example.com", claims["email"])
}
