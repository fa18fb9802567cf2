package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued by the platform's session layer.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// SignToken issues a signed session token for the given user.
func SignToken(secret, issuer, uid string, roles []Role, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	rs := make([]string, len(roles))
	for i, r := range roles {
		rs[i] = string(r)
	}
	claims := &Claims{
		Roles: rs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// ParseToken verifies a session token and returns the user id and role
// set. An empty issuer skips the issuer check.
func ParseToken(secret, issuer, tokenString string) (string, []Role, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return "", nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return "", nil, fmt.Errorf("invalid token")
	}

	roles := make([]Role, len(claims.Roles))
	for i, r := range claims.Roles {
		roles[i] = Role(r)
	}
	return claims.Subject, roles, nil
}
