package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	// DefaultStateTTL is how long the provider has to call the webhook back.
	DefaultStateTTL = 15 * time.Minute

	stateKeyInfo = "ironio-oauth state v1"
	stateKeySize = 32
	envClaim     = "env"
)

// StateSigner issues and checks the anti-forgery state sent with the
// authorization request. The state is an HMAC-signed JWT so a later worker
// invocation can verify it without any shared storage.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewStateSigner derives the signing key from secret and salt with HKDF.
func NewStateSigner(secret, salt string, ttl time.Duration) (*StateSigner, error) {
	if secret == "" {
		return nil, errors.New("state signer: secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}

	key := make([]byte, stateKeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(salt), []byte(stateKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("state signer: derive key: %w", err)
	}
	return &StateSigner{secret: key, ttl: ttl}, nil
}

// Sign returns a fresh state bound to env.
func (s *StateSigner) Sign(env string) (string, error) {
	now := NowTimeFunc()
	claims := jwt.MapClaims{
		envClaim: env,
		"jti":    uuid.New().String(),
		"iat":    now.Unix(),
		"exp":    now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks state was issued by this signer for env and has not expired.
func (s *StateSigner) Verify(state, env string) error {
	if state == "" {
		return fmt.Errorf("%w: state is empty", ErrInvalidState)
	}

	parsed, err := jwt.Parse(state, s.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("%w: unexpected claims", ErrInvalidState)
	}
	if got, _ := claims[envClaim].(string); got != env {
		return fmt.Errorf("%w: issued for environment %q", ErrInvalidState, got)
	}
	return nil
}

func (s *StateSigner) verificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}
