package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Service issues and validates HS256 bearer tokens.
type Service struct {
	store  *Store
	secret []byte
	expiry time.Duration
}

// NewService builds a token service. expiryMinutes <= 0 defaults to an
// hour.
func NewService(store *Store, secret string, expiryMinutes int) *Service {
	if expiryMinutes <= 0 {
		expiryMinutes = 60
	}
	return &Service{
		store:  store,
		secret: []byte(secret),
		expiry: time.Duration(expiryMinutes) * time.Minute,
	}
}

// VerifyUser delegates to the user store.
func (s *Service) VerifyUser(username, password string) (*User, error) {
	return s.store.VerifyUser(username, password)
}

// CreateAccessToken issues a signed token for the user.
func (s *Service) CreateAccessToken(username string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expiry)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ExpirySeconds returns the token lifetime, for the token response body.
func (s *Service) ExpirySeconds() int {
	return int(s.expiry.Seconds())
}

// ParseToken validates a bearer token and loads the user it names. Expired
// or malformed tokens and tokens for unknown or disabled users all fail.
func (s *Service) ParseToken(tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	u, err := s.store.GetUser(claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("unknown user %q", claims.Subject)
	}
	if u.Disabled {
		return nil, fmt.Errorf("user %q is disabled", claims.Subject)
	}
	return u, nil
}
