// Package auth implements the owner marker: a signed token the transport
// presents with privileged intents to prove the acting identity.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// Claims includes the registered claims plus the acting user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64
}

// MintOwnerToken signs an HS256 token asserting userID as the acting
// identity, valid for validityDuration.
func MintOwnerToken(userID int64, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// UserIDFromToken verifies the token signature and returns the asserted
// user id. Returns common.ErrInvalidToken for garbage, expired or
// wrongly-signed tokens.
func UserIDFromToken(tokenString string, secretKey []byte) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return 0, common.ErrInvalidToken
	}

	if !token.Valid {
		return 0, common.ErrInvalidToken
	}

	return claims.UserID, nil
}
