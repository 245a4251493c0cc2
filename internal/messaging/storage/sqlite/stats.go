package sqlite

import (
	"context"
	"fmt"

	"github.com/hyptrb/messaging/internal/messaging/storage"
)

// Stats aggregates store-wide totals in one round trip.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Stats{}, fmt.Errorf("storage is not configured")
	}

	var stats storage.Stats
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT
    (SELECT COUNT(1) FROM users),
    (SELECT COUNT(1) FROM threads WHERE status = 'active'),
    (SELECT COUNT(1) FROM conversations WHERE status = 'active'),
    (SELECT COALESCE(SUM(unread_count), 0) FROM conversations),
    (SELECT COUNT(1) FROM messages)
`).Scan(
		&stats.TotalUsers,
		&stats.ActiveThreads,
		&stats.ActiveConversations,
		&stats.UnreadTotal,
		&stats.TotalMessages,
	)
	if err != nil {
		return storage.Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return stats, nil
}
