// Package auth issues and verifies player session tokens and hashes
// passwords.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
)

// Issuer is the iss claim of every session token.
const Issuer = "throne-of-dust"

// MinSecretBytes is the shortest accepted HS256 secret.
const MinSecretBytes = 32

// TokenConfig defines how session tokens are signed.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// Claims are the validated claims of a session token.
type Claims struct {
	PlayerID  string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Validate reports a short secret or a non-positive ttl.
func (c TokenConfig) Validate() error {
	if len(c.Secret) < MinSecretBytes {
		return fmt.Errorf("token secret must be at least %d bytes", MinSecretBytes)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	return nil
}

func (c TokenConfig) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// Issue signs a token for the player.
func Issue(playerID, username string, cfg TokenConfig) (string, Claims, error) {
	if err := cfg.Validate(); err != nil {
		return "", Claims{}, err
	}
	if strings.TrimSpace(playerID) == "" {
		return "", Claims{}, errors.New("player id is required")
	}
	now := cfg.now().Truncate(time.Second)
	exp := now.Add(cfg.TTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: username,
	})
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, Claims{PlayerID: playerID, Username: username, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks the signature, issuer and expiry of a token. Every failure
// is UNAUTHORIZED.
func Verify(token string, cfg TokenConfig) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthorized, "session token is required")
	}
	if err := cfg.Validate(); err != nil {
		return Claims{}, err
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthorized, "session token has no subject")
	}

	claims := Claims{
		PlayerID:  parsed.Subject,
		Username:  parsed.Username,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeUnauthorized, "session token is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeUnauthorized, "session token signature is invalid", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnauthorized, "session token is invalid", err)
	}
}
