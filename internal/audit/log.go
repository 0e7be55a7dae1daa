package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/evotehq/evote-backend/internal/models"
)

const logKey = "audit:log"

// maxEntries caps the trail so it cannot grow without bound.
const maxEntries = 100000

// Logger appends audit entries to a Redis list, newest first.
type Logger struct {
	rdb *redis.Client
}

func NewLogger(rdb *redis.Client) *Logger {
	return &Logger{rdb: rdb}
}

func (l *Logger) Log(ctx context.Context, e models.AuditEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	pipe := l.rdb.TxPipeline()
	pipe.LPush(ctx, logKey, raw)
	pipe.LTrim(ctx, logKey, 0, maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, most recent first.
func (l *Logger) Recent(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	raws, err := l.rdb.LRange(ctx, logKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	entries := make([]models.AuditEntry, 0, len(raws))
	for _, raw := range raws {
		var e models.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
