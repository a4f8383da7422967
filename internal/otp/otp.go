// Package otp issues and verifies short numeric sign-in codes. Only a SHA-256
// hash of each code is stored; a code is consumed on first successful use
// and burns out after MaxAttempts wrong guesses.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/iliyamo/fest-registration/internal/apperr"
)

// Config tunes code issuance.
type Config struct {
	Length      int           `mapstructure:"length"`
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// DefaultConfig is a 6-digit code valid for ten minutes with five tries.
func DefaultConfig() Config {
	return Config{Length: 6, TTL: 10 * time.Minute, MaxAttempts: 5}
}

// Entry is the stored state of one outstanding code.
type Entry struct {
	Hash     string `json:"hash"`
	Attempts int    `json:"attempts"`
}

// ErrNoCode is returned by a Store when nothing is pending for the key.
var ErrNoCode = errors.New("otp: no pending code")

// Store keeps entries with an expiry. Implementations must make IncrAttempts and
// Delete safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Get(ctx context.Context, key string) (Entry, error)
	IncrAttempts(ctx context.Context, key string) (int, error)
	Delete(ctx context.Context, key string) error
}

// Issuer ties a Store to a Config.
type Issuer struct {
	cfg   Config
	store Store
}

func NewIssuer(cfg Config, store Store) *Issuer {
	def := DefaultConfig()
	if cfg.Length < 4 || cfg.Length > 10 {
		cfg.Length = def.Length
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Issuer{cfg: cfg, store: store}
}

// TTL reports how long issued codes stay valid.
func (i *Issuer) TTL() time.Duration { return i.cfg.TTL }

// Issue creates a new code for subject, replacing any pending one.
func (i *Issuer) Issue(ctx context.Context, subject string) (string, error) {
	code, err := randomDigits(i.cfg.Length)
	if err != nil {
		return "", err
	}
	if err := i.store.Put(ctx, key(subject), Entry{Hash: hash(code)}, i.cfg.TTL); err != nil {
		return "", fmt.Errorf("otp: store: %w", err)
	}
	return code, nil
}

// Verify consumes the pending code when it matches. A wrong code counts as an
// attempt; once attempts reach the limit the code is discarded. All failures
// are reported as apperr.ErrUnauthorized.
func (i *Issuer) Verify(ctx context.Context, subject, code string) error {
	k := key(subject)
	e, err := i.store.Get(ctx, k)
	if errors.Is(err, ErrNoCode) {
		return fmt.Errorf("%w: code expired or never issued", apperr.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("otp: load: %w", err)
	}
	if e.Attempts >= i.cfg.MaxAttempts {
		_ = i.store.Delete(ctx, k)
		return fmt.Errorf("%w: too many attempts", apperr.ErrUnauthorized)
	}
	if subtle.ConstantTimeCompare([]byte(e.Hash), []byte(hash(strings.TrimSpace(code)))) != 1 {
		n, err := i.store.IncrAttempts(ctx, k)
		if err == nil && n >= i.cfg.MaxAttempts {
			_ = i.store.Delete(ctx, k)
		}
		return fmt.Errorf("%w: code does not match", apperr.ErrUnauthorized)
	}
	if err := i.store.Delete(ctx, k); err != nil {
		return fmt.Errorf("otp: consume: %w", err)
	}
	return nil
}

func key(subject string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(subject))
}

func hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for j := 0; j < n; j++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("otp: random: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
