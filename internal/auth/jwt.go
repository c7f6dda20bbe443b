package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oreanmos/copepod-go/internal/constants"
)

// DecodeClaims returns the claims of a JWT without verifying its signature.
// The platform verifies tokens; the client only reads them.
func DecodeClaims(token string) (jwt.MapClaims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, constants.ErrInvalidJWTFormat
	}

	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
	}

	return claims, nil
}

// ExpiryFromJWT returns the "exp" claim of a JWT access token.
func ExpiryFromJWT(token string) (*time.Time, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return nil, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading expiration claim: %w", err)
	}

	if exp == nil {
		return nil, constants.ErrNoExpirationClaim
	}

	expiresAt := exp.Time

	return &expiresAt, nil
}
