package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/superbrain-ai/superbrain/internal/domain/chat"
	domsess "github.com/superbrain-ai/superbrain/internal/domain/session"
)

// turnRow is the JSON-serializable representation of a chat turn for the
// history list.
type turnRow struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func encodeTurn(t chat.Turn) (string, error) {
	data, err := json.Marshal(turnRow{Role: string(t.Role()), Text: t.Text()})
	if err != nil {
		return "", fmt.Errorf("marshal turn: %w", err)
	}
	return string(data), nil
}

func decodeTurn(row string) (chat.Turn, error) {
	var r turnRow
	if err := json.Unmarshal([]byte(row), &r); err != nil {
		return chat.Turn{}, fmt.Errorf("unmarshal turn: %w", err)
	}
	return chat.Reconstruct(chat.Role(r.Role), r.Text), nil
}

// sessionToHash converts a session snapshot's scalar fields to a map for HSET.
// The usage counter lives under its own key and is not part of the hash.
func sessionToHash(snap domsess.Snapshot) map[string]string {
	premiumAt := int64(0)
	if snap.Premium {
		premiumAt = snap.PremiumActivatedAt.UnixMilli()
	}
	return map[string]string{
		"premium":      boolField(snap.Premium),
		"premium_at":   strconv.FormatInt(premiumAt, 10),
		"created_at":   strconv.FormatInt(snap.CreatedAt.UnixMilli(), 10),
		"last_seen_at": strconv.FormatInt(snap.LastSeenAt.UnixMilli(), 10),
	}
}

// sessionFromHash hydrates a session snapshot from an HGETALL result map plus
// the separately stored usage counter and history rows.
func sessionFromHash(id string, m map[string]string, count int, rows []string) (domsess.Snapshot, error) {
	createdAt, err := millisField(m, "created_at")
	if err != nil {
		return domsess.Snapshot{}, err
	}
	lastSeenAt, err := millisField(m, "last_seen_at")
	if err != nil {
		return domsess.Snapshot{}, err
	}

	snap := domsess.Snapshot{
		ID:           id,
		RequestCount: count,
		Premium:      m["premium"] == "1",
		CreatedAt:    createdAt,
		LastSeenAt:   lastSeenAt,
	}

	if snap.Premium {
		premiumAt, err := millisField(m, "premium_at")
		if err != nil {
			return domsess.Snapshot{}, err
		}
		snap.PremiumActivatedAt = premiumAt
	}

	if len(rows) > 0 {
		turns := make([]chat.Turn, len(rows))
		for i, row := range rows {
			turn, err := decodeTurn(row)
			if err != nil {
				return domsess.Snapshot{}, fmt.Errorf("history row %d: %w", i, err)
			}
			turns[i] = turn
		}
		snap.History = turns
	}

	return snap, nil
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func millisField(m map[string]string, field string) (time.Time, error) {
	ms, err := strconv.ParseInt(m[field], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
