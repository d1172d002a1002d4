package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried by both access and refresh tokens: the
// numeric user id plus registered expiry/issued-at claims.
type Claims struct {
	UserID int64 `json:"user_id"`

	jwt.RegisteredClaims
}

// Codec issues and verifies signed session tokens. The signing key and
// algorithm are fixed at construction and never change for the lifetime of
// the process.
type Codec struct {
	key    []byte
	method jwt.SigningMethod
}

// NewCodec creates a token codec for the given shared secret and HMAC
// algorithm name (e.g. "HS256").
func NewCodec(secret, algorithm string) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: signing secret is required")
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("auth: unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: algorithm %q is not an HMAC method", algorithm)
	}
	return &Codec{key: []byte(secret), method: method}, nil
}

// Issue creates a signed token for userID expiring ttl from now.
func (c *Codec) Issue(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns the embedded
// user id. It returns ErrTokenExpired for a correctly signed token past its
// expiry and ErrTokenInvalid for everything else that is wrong with it.
func (c *Codec) Verify(token string) (int64, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, ErrTokenInvalid
	}
	if claims.UserID <= 0 {
		return 0, ErrTokenInvalid
	}
	return claims.UserID, nil
}
