package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other rejection.
	ErrTokenInvalid = errors.New("token invalid")
)

// clockSkew tolerated on exp/nbf between the issuer and this service.
const clockSkew = 30 * time.Second

// AccessClaims identify the caller. The subject carries the user id.
// Reviewer grants approval rights and visibility of every task.
type AccessClaims struct {
	Username string `json:"name,omitempty"`
	Reviewer bool   `json:"reviewer,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *AccessClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrTokenInvalid, c.Subject)
	}
	return uint(id), nil
}

// TokenOptions configure a JWTManager.
type TokenOptions struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
	Issuer    string
}

// JWTManager signs and verifies access tokens for one issuer. Tokens come
// from cmd/token or an external identity service sharing the secret.
type JWTManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
	parser *jwt.Parser
}

// NewJWTManager creates a JWTManager. Only HMAC algorithms are accepted.
func NewJWTManager(opts TokenOptions) (*JWTManager, error) {
	method, ok := jwt.GetSigningMethod(opts.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", opts.Algorithm)
	}
	if opts.Secret == "" {
		return nil, errors.New("empty signing secret")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithLeeway(clockSkew),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}

	return &JWTManager{
		secret: []byte(opts.Secret),
		method: method,
		ttl:    opts.TTL,
		issuer: opts.Issuer,
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

// GenerateToken issues a token for a user.
func (j *JWTManager) GenerateToken(userID uint, username string, reviewer bool) (string, error) {
	if userID == 0 {
		return "", errors.New("user id is required")
	}
	now := time.Now()
	claims := AccessClaims{
		Username: username,
		Reviewer: reviewer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    j.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(j.method, claims).SignedString(j.secret)
}

// ValidateToken verifies a token and returns its claims. Errors wrap
// ErrTokenExpired or ErrTokenInvalid.
func (j *JWTManager) ValidateToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := j.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
