// Package session persists session state in Redis: scalar entitlement fields
// in a hash, the usage counter as a plain INCRBY key and the chat history as
// a list. Key TTLs bound idle sessions server-side.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/superbrain-ai/superbrain/internal/db"
	"github.com/superbrain-ai/superbrain/internal/domain"
	"github.com/superbrain-ai/superbrain/internal/domain/chat"
	domsess "github.com/superbrain-ai/superbrain/internal/domain/session"
)

// store is the consumer interface for session persistence (ISP).
//
//nolint:interfacebloat // session repo spans hash, list and counter operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	ExpireMulti(ctx context.Context, keys []string, ttl time.Duration, nx bool) error
}

// Repo implements usecase/session.Repository.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a session repository. ttl bounds every session key; a
// non-positive ttl falls back to 24h so keys never accumulate unbounded.
func New(s store, ttl time.Duration) *Repo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Repo{store: s, ttl: ttl}
}

// Save writes the scalar session state: entitlement hash plus the usage
// counter. History is persisted separately by AppendHistory.
func (r *Repo) Save(ctx context.Context, snap domsess.Snapshot) error {
	key := sessionKey(snap.ID)

	if err := r.store.HSet(ctx, key, sessionToHash(snap)); err != nil {
		return fmt.Errorf("hset session %s: %w", snap.ID, err)
	}
	count := strconv.Itoa(snap.RequestCount)
	if err := r.store.Set(ctx, quotaKey(snap.ID), []byte(count)); err != nil {
		return fmt.Errorf("set quota %s: %w", snap.ID, err)
	}
	if err := r.store.ExpireMulti(ctx, sessionKeys(snap.ID), r.ttl, false); err != nil {
		return fmt.Errorf("expire session %s: %w", snap.ID, err)
	}
	return nil
}

// Load hydrates a session snapshot. Returns domain.ErrSessionNotFound when
// the session hash is absent or already expired.
func (r *Repo) Load(ctx context.Context, id string) (domsess.Snapshot, error) {
	m, err := r.store.HGetAll(ctx, sessionKey(id))
	if err != nil {
		return domsess.Snapshot{}, fmt.Errorf("hgetall session %s: %w", id, err)
	}
	if len(m) == 0 {
		return domsess.Snapshot{}, domain.ErrSessionNotFound
	}

	count, err := r.loadCount(ctx, id)
	if err != nil {
		return domsess.Snapshot{}, err
	}

	rows, err := r.store.LRange(ctx, historyKey(id), 0, -1)
	if err != nil {
		return domsess.Snapshot{}, fmt.Errorf("lrange history %s: %w", id, err)
	}

	return sessionFromHash(id, m, count, rows)
}

// IncrementUsage adds delta to the persisted usage counter without a
// read-modify-write cycle. TTL is set only when the key has none yet.
func (r *Repo) IncrementUsage(ctx context.Context, id string, delta int64) error {
	key := quotaKey(id)
	if err := r.store.IncrBy(ctx, key, delta); err != nil {
		return fmt.Errorf("incrby quota %s: %w", id, err)
	}
	if err := r.store.Expire(ctx, key, r.ttl, true); err != nil {
		return fmt.Errorf("expire quota %s: %w", id, err)
	}
	return nil
}

// AppendHistory pushes encoded turns onto the history list and trims it to
// the most recent maxTurns entries (0 keeps everything).
func (r *Repo) AppendHistory(ctx context.Context, id string, turns []chat.Turn, maxTurns int) error {
	if len(turns) == 0 {
		return nil
	}

	rows := make([]string, len(turns))
	for i, t := range turns {
		row, err := encodeTurn(t)
		if err != nil {
			return fmt.Errorf("encode history turn: %w", err)
		}
		rows[i] = row
	}

	key := historyKey(id)
	if err := r.store.RPush(ctx, key, rows...); err != nil {
		return fmt.Errorf("rpush history %s: %w", id, err)
	}
	if maxTurns > 0 {
		if err := r.store.LTrim(ctx, key, -int64(maxTurns), -1); err != nil {
			return fmt.Errorf("ltrim history %s: %w", id, err)
		}
	}
	if err := r.store.Expire(ctx, key, r.ttl, true); err != nil {
		return fmt.Errorf("expire history %s: %w", id, err)
	}
	return nil
}

// ClearHistory drops the persisted conversation, keeping counters and
// entitlement state.
func (r *Repo) ClearHistory(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, historyKey(id)); err != nil {
		return fmt.Errorf("del history %s: %w", id, err)
	}
	return nil
}

// Touch refreshes the TTL on every key of the session.
func (r *Repo) Touch(ctx context.Context, id string) error {
	if err := r.store.ExpireMulti(ctx, sessionKeys(id), r.ttl, false); err != nil {
		return fmt.Errorf("touch session %s: %w", id, err)
	}
	return nil
}

// Delete removes all keys of a session.
func (r *Repo) Delete(ctx context.Context, id string) error {
	var errs []error
	for _, key := range sessionKeys(id) {
		if err := r.store.Del(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("del %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Repo) loadCount(ctx context.Context, id string) (int, error) {
	data, err := r.store.Get(ctx, quotaKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("get quota %s: %w", id, err)
	}
	count, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("get quota %s parse: %w", id, err)
	}
	return count, nil
}

// Redis key patterns: superbrain:session:{id}, :quota and :history suffixes.

func sessionKey(id string) string {
	return fmt.Sprintf("%ssession:%s", domain.KeyPrefix, id)
}

func quotaKey(id string) string {
	return sessionKey(id) + ":quota"
}

func historyKey(id string) string {
	return sessionKey(id) + ":history"
}

func sessionKeys(id string) []string {
	return []string{sessionKey(id), quotaKey(id), historyKey(id)}
}
