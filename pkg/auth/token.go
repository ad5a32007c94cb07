package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	// DefaultTokenTTL is the lifetime of a session token
	DefaultTokenTTL = 24 * time.Hour
	// MinSecretLength is the minimum HMAC secret size in bytes
	MinSecretLength = 32
)

var (
	// ErrInvalidToken is returned for malformed tokens and bad signatures
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for tokens past their expiry
	ErrExpiredToken = errors.New("token expired")
)

// sessionClaims is the private claim set carried next to the registered claims
type sessionClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// TokenManager issues and verifies HS256 signed session tokens
type TokenManager struct {
	key    []byte
	signer jose.Signer
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a token manager signing with secret
func NewTokenManager(secret []byte, ttl time.Duration, issuer string) (*TokenManager, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}

	return &TokenManager{
		key:    secret,
		signer: signer,
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue creates a signed token embedding the user's id, username and role
func (tm *TokenManager) Issue(user *User) (string, *Claims, error) {
	now := tm.now().UTC().Truncate(time.Second)
	expires := now.Add(tm.ttl)

	registered := jwt.Claims{
		Issuer:   tm.issuer,
		Subject:  strconv.FormatInt(user.ID, 10),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(expires),
	}
	private := sessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}

	raw, err := jwt.Signed(tm.signer).Claims(registered).Claims(private).Serialize()
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return raw, &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}

// Verify checks the signature, issuer and expiry of raw and returns its claims
func (tm *TokenManager) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var registered jwt.Claims
	var private sessionClaims
	if err := tok.Claims(tm.key, &registered, &private); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	err = registered.ValidateWithLeeway(jwt.Expected{
		Issuer: tm.issuer,
		Time:   tm.now(),
	}, 0)
	if errors.Is(err, jwt.ErrExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if private.UserID == 0 || registered.Expiry == nil {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}

	claims := &Claims{
		UserID:    private.UserID,
		Username:  private.Username,
		Role:      private.Role,
		ExpiresAt: registered.Expiry.Time(),
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time()
	}
	return claims, nil
}
