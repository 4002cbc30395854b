package session

import (
	"context"
	"testing"
	"time"

	"github.com/superbrain-ai/superbrain/internal/db"
	"github.com/superbrain-ai/superbrain/internal/domain/chat"
	domsess "github.com/superbrain-ai/superbrain/internal/domain/session"
)

const testTTL = time.Hour

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	delFn         func(ctx context.Context, key string) error
	rpushFn       func(ctx context.Context, key string, values ...string) error
	lrangeFn      func(ctx context.Context, key string, start, stop int64) ([]string, error)
	ltrimFn       func(ctx context.Context, key string, start, stop int64) error
	getFn         func(ctx context.Context, key string) ([]byte, error)
	setFn         func(ctx context.Context, key string, value []byte) error
	incrByFn      func(ctx context.Context, key string, val int64) error
	expireFn      func(ctx context.Context, key string, ttl time.Duration, nx bool) error
	expireMultiFn func(ctx context.Context, keys []string, ttl time.Duration, nx bool) error
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) RPush(ctx context.Context, key string, values ...string) error {
	if m.rpushFn != nil {
		return m.rpushFn(ctx, key, values...)
	}
	return nil
}

func (m *mockStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if m.lrangeFn != nil {
		return m.lrangeFn(ctx, key, start, stop)
	}
	return nil, nil
}

func (m *mockStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	if m.ltrimFn != nil {
		return m.ltrimFn(ctx, key, start, stop)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockStore) IncrBy(ctx context.Context, key string, val int64) error {
	if m.incrByFn != nil {
		return m.incrByFn(ctx, key, val)
	}
	return nil
}

func (m *mockStore) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	if m.expireFn != nil {
		return m.expireFn(ctx, key, ttl, nx)
	}
	return nil
}

func (m *mockStore) ExpireMulti(ctx context.Context, keys []string, ttl time.Duration, nx bool) error {
	if m.expireMultiFn != nil {
		return m.expireMultiFn(ctx, keys, ttl, nx)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, testTTL)
	return repo, ms
}

func testSnapshot(t *testing.T) domsess.Snapshot {
	t.Helper()
	return domsess.Snapshot{
		ID:                 "sess-1",
		RequestCount:       7,
		Premium:            true,
		PremiumActivatedAt: time.UnixMilli(1700000000000).UTC(),
		History: []chat.Turn{
			chat.Reconstruct(chat.RoleUser, "hi"),
			chat.Reconstruct(chat.RoleAssistant, "hello"),
		},
		CreatedAt:  time.UnixMilli(1690000000000).UTC(),
		LastSeenAt: time.UnixMilli(1700000000000).UTC(),
	}
}
