package access

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultTokenTTL applies when IssueToken is given a non-positive TTL.
const defaultTokenTTL = 15 * time.Minute

// Claims is the JWT payload for userlevel tokens.
type Claims struct {
	jwt.RegisteredClaims
	Userlevel Userlevel `json:"ul"`
}

// IssueToken signs a token granting levels up to and including level.
func IssueToken(subject string, level Userlevel, secret string, ttl time.Duration) (string, error) {
	if !level.IsValid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidUserlevel, int(level))
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Userlevel: level,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing userlevel token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a userlevel token's signature and expiry.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims, nil
}

// TokenDecider grants a level when the credential is a valid token whose
// "ul" claim is at least the requested level.
type TokenDecider struct {
	Secret string
}

// Decide implements Decider.
func (d TokenDecider) Decide(req Request) bool {
	if d.Secret == "" || req.Credential == "" {
		return false
	}
	claims, err := ParseToken(req.Credential, d.Secret)
	if err != nil {
		return false
	}
	return claims.Userlevel >= req.Requested
}
