package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	AccountID string `json:"uid"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies stateless bearer tokens. There is no
// revocation: logout is client-side discard, and a stolen token stays
// usable until expiry. Deployments that need stronger guarantees should
// shorten the lifetime or add a server-side denylist.
type Tokens struct {
	secret   []byte
	lifetime time.Duration
}

func NewTokens(secret []byte, lifetime time.Duration) *Tokens {
	return &Tokens{secret: secret, lifetime: lifetime}
}

func (t *Tokens) Issue(a *Account) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		AccountID: a.ID,
		Role:      a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.secret)
}

// Verify returns the claims iff the token is well formed, signed with
// our secret, and not expired. Every other outcome is ErrInvalidToken.
func (t *Tokens) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
