package otp

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestManager() (*Manager, *fakeClock) {
	clock := newFakeClock()
	return NewManagerWithClock(NewMemoryStore(), clock.Now), clock
}

func TestIssueAndVerify(t *testing.T) {
	m, _ := newTestManager()

	code, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	err = m.Verify(PurposeLogin, "a@x.com", code)
	assert.NoError(t, err)

	// code is single-use
	err = m.Verify(PurposeLogin, "a@x.com", code)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestVerifyWrongCode(t *testing.T) {
	m, _ := newTestManager()

	_, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)

	err = m.Verify(PurposeLogin, "a@x.com", "000000")
	var invalid *InvalidCodeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 2, invalid.Remaining)
}

func TestVerifyAttemptLimit(t *testing.T) {
	m, clock := newTestManager()

	code, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)

	for i := 0; i < MaxAttempts; i++ {
		err = m.Verify(PurposeLogin, "a@x.com", "000000")
		var invalid *InvalidCodeError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, MaxAttempts-1-i, invalid.Remaining)
	}

	// challenge is kept but unusable, even with the right code
	err = m.Verify(PurposeLogin, "a@x.com", code)
	var invalid *InvalidCodeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, invalid.Remaining)

	// a fresh issue resets the attempt counter
	clock.Advance(ResendCooldown)
	newCode, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)
	assert.NoError(t, m.Verify(PurposeLogin, "a@x.com", newCode))
}

func TestVerifyExpired(t *testing.T) {
	m, clock := newTestManager()

	code, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)

	clock.Advance(ExpiryPeriod + time.Second)

	err = m.Verify(PurposeLogin, "a@x.com", code)
	assert.ErrorIs(t, err, ErrExpired)

	// expiry clears the challenge
	err = m.Verify(PurposeLogin, "a@x.com", code)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestVerifyNoChallenge(t *testing.T) {
	m, _ := newTestManager()
	err := m.Verify(PurposeLogin, "nobody@x.com", "123456")
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestIssueCooldown(t *testing.T) {
	m, clock := newTestManager()

	_, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	_, err = m.Issue(PurposeLogin, "a@x.com")
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, 30*time.Second, cooldown.Remaining)

	clock.Advance(30 * time.Second)
	_, err = m.Issue(PurposeLogin, "a@x.com")
	assert.NoError(t, err)
}

func TestIssueRateLimit(t *testing.T) {
	m, clock := newTestManager()

	for i := 0; i < MaxIssuesPerWindow; i++ {
		_, err := m.Issue(PurposeLogin, "a@x.com")
		require.NoError(t, err)
		clock.Advance(ResendCooldown)
	}

	// 5 minutes have passed; still inside the rolling hour
	_, err := m.Issue(PurposeLogin, "a@x.com")
	assert.ErrorIs(t, err, ErrRateLimited)

	// a rejected issue records nothing: advancing past the first issuance
	// frees exactly one slot
	clock.Advance(RateWindow - time.Duration(MaxIssuesPerWindow)*ResendCooldown)
	_, err = m.Issue(PurposeLogin, "a@x.com")
	assert.NoError(t, err)
}

func TestConcurrentIssuesReserveOnce(t *testing.T) {
	m, _ := newTestManager()

	// all requests land at the same instant, so the cooldown guard must let
	// exactly one reservation through
	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Issue(PurposeLogin, "a@x.com"); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
}

func TestRateLimitIsPerPurposeAndEmail(t *testing.T) {
	m, clock := newTestManager()

	for i := 0; i < MaxIssuesPerWindow; i++ {
		_, err := m.Issue(PurposeLogin, "a@x.com")
		require.NoError(t, err)
		clock.Advance(ResendCooldown)
	}
	_, err := m.Issue(PurposeLogin, "a@x.com")
	require.ErrorIs(t, err, ErrRateLimited)

	// other purposes and identities are unaffected
	_, err = m.Issue(PurposePrebook, "a@x.com")
	assert.NoError(t, err)
	_, err = m.Issue(PurposeLogin, "b@x.com")
	assert.NoError(t, err)
}

func TestVerifyIsPurposeScoped(t *testing.T) {
	m, _ := newTestManager()

	code, err := m.Issue(PurposePrebook, "a@x.com")
	require.NoError(t, err)

	err = m.Verify(PurposeLogin, "a@x.com", code)
	assert.ErrorIs(t, err, ErrNoChallenge)

	assert.NoError(t, m.Verify(PurposePrebook, "a@x.com", code))
}

func TestReissueSupersedesChallenge(t *testing.T) {
	m, clock := newTestManager()

	first, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)

	clock.Advance(ResendCooldown)
	second, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)

	if first != second {
		err = m.Verify(PurposeLogin, "a@x.com", first)
		var invalid *InvalidCodeError
		require.True(t, errors.As(err, &invalid))
	}
	assert.NoError(t, m.Verify(PurposeLogin, "a@x.com", second))
}

func TestSweepDropsExpiredChallenges(t *testing.T) {
	m, clock := newTestManager()

	_, err := m.Issue(PurposeLogin, "a@x.com")
	require.NoError(t, err)
	_, err = m.Issue(PurposeReset, "b@x.com")
	require.NoError(t, err)

	clock.Advance(ExpiryPeriod + time.Second)
	assert.Equal(t, 2, m.Sweep())

	err = m.Verify(PurposeLogin, "a@x.com", "123456")
	assert.ErrorIs(t, err, ErrNoChallenge)
}
