package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps every transport failure talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrNotFound is returned for missing or expired sessions. It also
	// matches redis.Nil under errors.Is.
	ErrNotFound = errors.Join(redis.Nil, errors.New("session not found"))
)

const deleteSessionScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
redis.call("DEL", KEYS[1])
if ARGV[2] ~= "" then
  redis.call("SREM", ARGV[1] .. ARGV[2], ARGV[3])
end
return 1
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store. Each session lives under its own
// key with a TTL; a per-user set indexes the session IDs so that every
// session of a user can be revoked at once.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "as"
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + "u:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Save persists a [Session] with the given TTL and indexes it under its user.
//
//	Performance: 1 MULTI/EXEC with SET + SADD + EXPIRE.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	userKey := s.userKey(sess.UserID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a session by ID. Missing, expired or undecodable records
// yield [ErrNotFound].
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, ErrNotFound
	}
	sess.SessionID = sessionID

	if time.Now().Unix() >= sess.ExpiresAt {
		return nil, ErrNotFound
	}

	return sess, nil
}

// Delete removes a session and its index entry. Deleting a session that does
// not exist is not an error, which makes logout idempotent.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.delete(ctx, sessionID, "")
}

// DeleteForUser removes a session that is known to belong to userID and
// drops it from that user's index in the same script.
func (s *Store) DeleteForUser(ctx context.Context, userID, sessionID string) error {
	return s.delete(ctx, sessionID, userID)
}

func (s *Store) delete(ctx context.Context, sessionID, userID string) error {
	_, err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(sessionID)}, s.userKeyPrefix(), userID, sessionID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every indexed session of a user. A session saved
// concurrently with this call may survive it; it still expires on its TTL.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(sessionIDs)+1)
	for _, sessionID := range sessionIDs {
		keys = append(keys, s.key(sessionID))
	}
	keys = append(keys, userKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs returns the indexed session IDs for a user.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
