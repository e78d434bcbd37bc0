package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

type Purpose string

const (
	PurposeLogin   Purpose = "login"
	PurposePrebook Purpose = "prebook"
	PurposeReset   Purpose = "reset"
)

const (
	// ExpiryPeriod is how long an issued code stays verifiable.
	ExpiryPeriod = 5 * time.Minute
	// MaxAttempts is the number of failed verifications before the challenge
	// becomes unusable and must be re-issued.
	MaxAttempts = 3
	// MaxIssuesPerWindow caps issuances per (purpose, email) in RateWindow.
	MaxIssuesPerWindow = 5
	RateWindow         = time.Hour
	// ResendCooldown is the minimum gap between two issuances for the same
	// (purpose, email).
	ResendCooldown = 60 * time.Second
)

var (
	ErrRateLimited = errors.New("too many OTP requests, please try again later")
	ErrNoChallenge = errors.New("no OTP found, please request a new one")
	ErrExpired     = errors.New("OTP has expired, please request a new one")
)

// CooldownError is returned when a re-issue arrives before ResendCooldown has
// elapsed. Remaining tells the caller how long to wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another OTP", int(e.Remaining.Seconds()))
}

// InvalidCodeError is returned on a failed verification. Remaining is 0 once
// the attempt limit is reached; the challenge then stays unusable until a new
// code is issued.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid OTP, %d attempts remaining", e.Remaining)
}

// Challenge is the stored state for one (purpose, email) pair. Only the hash
// of the code is kept.
type Challenge struct {
	CodeHash  string    `json:"code_hash"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// Manager issues and verifies one-time codes. Issue and Verify serialize on
// an internal mutex so the rate-limit and attempt counters never race.
type Manager struct {
	store Store
	now   func() time.Time
	mu    sync.Mutex
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewManagerWithClock injects the time source, for tests.
func NewManagerWithClock(store Store, now func() time.Time) *Manager {
	return &Manager{store: store, now: now}
}

// Issue generates a fresh 6-digit code for the pair, superseding any previous
// challenge. The rate-limit and cooldown guards run atomically inside the
// store, so two instances sharing a store cannot both pass them. A rejected
// issue mutates nothing.
func (m *Manager) Issue(purpose Purpose, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if err := m.store.ReserveIssue(purpose, email, now); err != nil {
		return "", err
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}

	challenge := &Challenge{
		CodeHash:  hashCode(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(ExpiryPeriod),
	}
	if err := m.store.PutChallenge(purpose, email, challenge); err != nil {
		return "", err
	}

	return code, nil
}

// Verify checks a submitted code against the active challenge. A match clears
// the challenge so the code is single-use. A mismatch burns one attempt;
// after MaxAttempts every further call reports zero attempts remaining.
func (m *Manager) Verify(purpose Purpose, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	challenge, ok, err := m.store.Challenge(purpose, email)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoChallenge
	}

	now := m.now()
	if now.After(challenge.ExpiresAt) {
		if err := m.store.DeleteChallenge(purpose, email); err != nil {
			return err
		}
		return ErrExpired
	}

	if challenge.Attempts >= MaxAttempts {
		return &InvalidCodeError{Remaining: 0}
	}

	if hashCode(code) == challenge.CodeHash {
		return m.store.DeleteChallenge(purpose, email)
	}

	challenge.Attempts++
	if err := m.store.PutChallenge(purpose, email, challenge); err != nil {
		return err
	}
	return &InvalidCodeError{Remaining: MaxAttempts - challenge.Attempts}
}

// Sweep drops expired challenges. Advisory: a missed sweep only delays
// garbage collection, expiry is always re-checked in Verify.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Sweep(m.now())
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
