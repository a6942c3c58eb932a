package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// DefaultResetTokenTTL is how long a password reset token stays valid.
const DefaultResetTokenTTL = 10 * time.Minute

// ResetTokenStore issues single-use password reset tokens. Issuing a new
// token for a user invalidates the previous one.
type ResetTokenStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	// Consume reports whether token is the user's current token and, if so,
	// invalidates it.
	Consume(ctx context.Context, userID, token string) (bool, error)
}

func newResetToken() (string, string, error) {
	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash reset token: %w", err)
	}
	return token, string(hash), nil
}

func resetTokenMatches(hash, token string) bool {
	token = strings.TrimSpace(token)
	if token == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

type resetEntry struct {
	hash   string
	expiry time.Time
}

// MemoryResetTokenStore keeps reset tokens in-process.
type MemoryResetTokenStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]resetEntry // userID -> entry
}

// NewMemoryResetTokenStore builds an in-memory store; ttl <= 0 uses DefaultResetTokenTTL.
func NewMemoryResetTokenStore(ttl time.Duration) *MemoryResetTokenStore {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &MemoryResetTokenStore{ttl: ttl, entries: make(map[string]resetEntry)}
}

// Issue creates a new token for userID.
func (s *MemoryResetTokenStore) Issue(_ context.Context, userID string) (string, error) {
	token, hash, err := newResetToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.entries[userID] = resetEntry{hash: hash, expiry: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

// Consume validates and invalidates the user's token.
func (s *MemoryResetTokenStore) Consume(_ context.Context, userID, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return false, nil
	}
	if time.Now().After(entry.expiry) {
		delete(s.entries, userID)
		return false, nil
	}
	if !resetTokenMatches(entry.hash, token) {
		return false, nil
	}
	delete(s.entries, userID)
	return true, nil
}

// RedisResetTokenStore keeps bcrypt hashes of reset tokens in Redis with TTL.
type RedisResetTokenStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisResetTokenStore builds a Redis-backed reset token store.
func NewRedisResetTokenStore(addr, password string, ttl time.Duration) (*RedisResetTokenStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("reset token redis addr is required")
	}
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &RedisResetTokenStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix: "legalgen:reset",
		ttl:       ttl,
	}, nil
}

// Issue creates a new token for userID, replacing any earlier one.
func (s *RedisResetTokenStore) Issue(ctx context.Context, userID string) (string, error) {
	token, hash, err := newResetToken()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.key(userID), hash, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// deleteIfEqualScript removes the key only while it still holds the checked hash.
var deleteIfEqualScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Consume validates the token and deletes it. Concurrent consumers of the
// same token see exactly one success.
func (s *RedisResetTokenStore) Consume(ctx context.Context, userID, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	key := s.key(userID)
	hash, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !resetTokenMatches(hash, token) {
		return false, nil
	}
	deleted, err := deleteIfEqualScript.Run(ctx, s.client, []string{key}, hash).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}

// Close releases the Redis client.
func (s *RedisResetTokenStore) Close() error {
	return s.client.Close()
}

func (s *RedisResetTokenStore) key(userID string) string {
	return s.keyPrefix + ":" + userID
}
