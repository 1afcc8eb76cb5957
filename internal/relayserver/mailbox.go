package relayserver

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"parley/internal/domain"
)

// Mailbox is the store-and-forward queue backing the relay. Envelopes stay
// queued until the owner acks them.
type Mailbox interface {
	Push(ctx context.Context, userID string, env domain.Envelope) error
	List(ctx context.Context, userID string, limit int) ([]domain.Envelope, error)
	Ack(ctx context.Context, userID string, count int) error
}

// MemoryMailbox keeps queues in process memory. Suitable for development and
// tests; envelopes are lost on restart.
type MemoryMailbox struct {
	mu     sync.Mutex
	queues map[string][]domain.Envelope
}

func NewMemoryMailbox() *MemoryMailbox {
	return &MemoryMailbox{queues: make(map[string][]domain.Envelope)}
}

func (m *MemoryMailbox) Push(_ context.Context, userID string, env domain.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[userID] = append(m.queues[userID], env)
	return nil
}

func (m *MemoryMailbox) List(_ context.Context, userID string, limit int) ([]domain.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[userID]
	if limit <= 0 || limit > len(q) {
		limit = len(q)
	}
	out := make([]domain.Envelope, limit)
	copy(out, q[:limit])
	return out, nil
}

func (m *MemoryMailbox) Ack(_ context.Context, userID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[userID]
	if count > len(q) {
		count = len(q)
	}
	m.queues[userID] = q[count:]
	return nil
}

// RedisMailbox keeps one Redis list per user, so queued envelopes survive
// relay restarts.
type RedisMailbox struct {
	rdb *redis.Client
}

func NewRedisMailbox(rdb *redis.Client) *RedisMailbox {
	return &RedisMailbox{rdb: rdb}
}

func mailboxKey(userID string) string { return "mailbox:" + userID }

func (m *RedisMailbox) Push(ctx context.Context, userID string, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return m.rdb.RPush(ctx, mailboxKey(userID), data).Err()
}

func (m *RedisMailbox) List(ctx context.Context, userID string, limit int) ([]domain.Envelope, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	vals, err := m.rdb.LRange(ctx, mailboxKey(userID), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	envs := make([]domain.Envelope, 0, len(vals))
	for _, v := range vals {
		var env domain.Envelope
		if err := json.Unmarshal([]byte(v), &env); err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (m *RedisMailbox) Ack(ctx context.Context, userID string, count int) error {
	return m.rdb.LTrim(ctx, mailboxKey(userID), int64(count), -1).Err()
}

var (
	_ Mailbox = (*MemoryMailbox)(nil)
	_ Mailbox = (*RedisMailbox)(nil)
)
