package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps OTP state in Redis so challenges survive restarts and are
// shared across instances. Keys carry a TTL slightly beyond the rate window;
// expiry semantics still come from the Challenge fields, not from Redis.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ctx: context.Background()}
}

func (s *RedisStore) challengeKey(purpose Purpose, email string) string {
	return fmt.Sprintf("otp:challenge:%s:%s", purpose, email)
}

func (s *RedisStore) issuedKey(purpose Purpose, email string) string {
	return fmt.Sprintf("otp:issued:%s:%s", purpose, email)
}

func (s *RedisStore) Challenge(purpose Purpose, email string) (*Challenge, bool, error) {
	data, err := s.client.Get(s.ctx, s.challengeKey(purpose, email)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var challenge Challenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, false, err
	}
	return &challenge, true, nil
}

func (s *RedisStore) PutChallenge(purpose Purpose, email string, challenge *Challenge) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return err
	}
	return s.client.Set(s.ctx, s.challengeKey(purpose, email), data, RateWindow+ExpiryPeriod).Err()
}

func (s *RedisStore) DeleteChallenge(purpose Purpose, email string) error {
	return s.client.Del(s.ctx, s.challengeKey(purpose, email)).Err()
}

// reserveIssueScript runs the rate-limit and cooldown guards and, when both
// pass, records the issuance, in one server-side step. Two instances sharing
// the same Redis therefore cannot both pass the guards for the same pair.
// Issuances live in a sorted set scored by unix milliseconds.
var reserveIssueScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local cooldown = tonumber(ARGV[3])
local max = tonumber(ARGV[4])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= max then
  return {'rate', '0'}
end
local last = redis.call('ZRANGE', key, -1, -1, 'WITHSCORES')
if #last > 0 then
  local elapsed = now - tonumber(last[2])
  if elapsed < cooldown then
    return {'cooldown', tostring(cooldown - elapsed)}
  end
end
redis.call('ZADD', key, now, tostring(now))
redis.call('PEXPIRE', key, window)
return {'ok', '0'}
`)

func (s *RedisStore) ReserveIssue(purpose Purpose, email string, now time.Time) error {
	res, err := reserveIssueScript.Run(s.ctx, s.client,
		[]string{s.issuedKey(purpose, email)},
		now.UnixMilli(),
		RateWindow.Milliseconds(),
		ResendCooldown.Milliseconds(),
		MaxIssuesPerWindow,
	).Result()
	if err != nil {
		return err
	}

	reply, ok := res.([]interface{})
	if !ok || len(reply) != 2 {
		return fmt.Errorf("unexpected reserve reply: %v", res)
	}
	switch reply[0] {
	case "rate":
		return ErrRateLimited
	case "cooldown":
		remaining, ok := reply[1].(string)
		if !ok {
			return fmt.Errorf("unexpected reserve reply: %v", res)
		}
		ms, err := strconv.ParseInt(remaining, 10, 64)
		if err != nil {
			return fmt.Errorf("unexpected reserve reply: %v", res)
		}
		return &CooldownError{Remaining: time.Duration(ms) * time.Millisecond}
	default:
		return nil
	}
}

// Sweep is a no-op for Redis: key TTLs handle garbage collection.
func (s *RedisStore) Sweep(now time.Time) int {
	return 0
}
