package filesystem

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JohnyZhand/CoraBooks"
)

const (
	// ScopeUpload grants a single PUT of the object named by the subject.
	ScopeUpload = "upload"
	// ScopeDownload grants GET of objects whose name starts with the subject.
	ScopeDownload = "download"

	issuer = "corabooks"
)

// Claims are carried by upload and download tokens.
type Claims struct {
	Scope string `json:"scope"`
	Size  int64  `json:"size,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens for blob access.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign returns a token for scope on subject that expires after ttl.
func (s *Signer) Sign(scope, subject string, size int64, ttl time.Duration) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("sign token: %w: signing secret is empty", corabooks.ErrAuth)
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Scope: scope,
		Size:  size,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return token, expiresAt, nil
}

// Verify parses token and checks its signature, expiry and scope.
func (s *Signer) Verify(token, scope string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("verify token: %w: missing token", corabooks.ErrUnauthorized)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w: %w", corabooks.ErrUnauthorized, err)
	}

	if claims.Scope != scope {
		return nil, fmt.Errorf("verify token: %w: scope %q not granted", corabooks.ErrUnauthorized, scope)
	}

	return claims, nil
}
