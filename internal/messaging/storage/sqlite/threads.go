package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyptrb/messaging/internal/messaging/storage"
)

const threadColumns = "id, title, description, campaign_id, owner_id, status, created_at, updated_at"

// CreateThread inserts one thread row or resolves to the existing row for the
// same (campaign id, owner) pair. A concurrent insert losing the unique-index
// race re-reads the winner instead of failing.
func (s *Store) CreateThread(ctx context.Context, record storage.ThreadRecord) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if s == nil || s.sqlDB == nil {
		return "", false, fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeThreadRecord(record)
	if err != nil {
		return "", false, err
	}

	if normalized.CampaignID != "" {
		existingID, err := s.threadIDByCampaignAndOwner(ctx, normalized.CampaignID, normalized.OwnerID)
		if err == nil {
			return existingID, false, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return "", false, err
		}
	}

	var campaignID sql.NullString
	if normalized.CampaignID != "" {
		campaignID = sql.NullString{String: normalized.CampaignID, Valid: true}
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO threads (
		id, title, description, campaign_id, owner_id, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		normalized.ID,
		normalized.Title,
		normalized.Description,
		campaignID,
		normalized.OwnerID,
		normalized.Status,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) && normalized.CampaignID != "" {
			winnerID, lookupErr := s.threadIDByCampaignAndOwner(ctx, normalized.CampaignID, normalized.OwnerID)
			if lookupErr != nil {
				return "", false, lookupErr
			}
			return winnerID, false, nil
		}
		if isUniqueConstraintError(err) {
			return "", false, storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return "", false, storage.ErrNotFound
		}
		return "", false, fmt.Errorf("create thread: %w", err)
	}
	return normalized.ID, true, nil
}

func (s *Store) threadIDByCampaignAndOwner(ctx context.Context, campaignID, ownerID string) (string, error) {
	var threadID string
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id FROM threads WHERE campaign_id = ? AND owner_id = ?
`, campaignID, ownerID).Scan(&threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get thread by campaign and owner: %w", err)
	}
	return threadID, nil
}

// GetThread loads one thread row by id.
func (s *Store) GetThread(ctx context.Context, threadID string) (storage.ThreadRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ThreadRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ThreadRecord{}, fmt.Errorf("storage is not configured")
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return storage.ThreadRecord{}, fmt.Errorf("thread id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+threadColumns+`
FROM threads
WHERE id = ?
`, threadID)
	record, err := scanThread(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ThreadRecord{}, storage.ErrNotFound
		}
		return storage.ThreadRecord{}, fmt.Errorf("get thread: %w", err)
	}
	return record, nil
}

// GetThreadByCampaign loads the oldest thread keyed to one campaign.
func (s *Store) GetThreadByCampaign(ctx context.Context, campaignID string) (storage.ThreadRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ThreadRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ThreadRecord{}, fmt.Errorf("storage is not configured")
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return storage.ThreadRecord{}, fmt.Errorf("campaign id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+threadColumns+`
FROM threads
WHERE campaign_id = ?
ORDER BY created_at ASC, id ASC
LIMIT 1
`, campaignID)
	record, err := scanThread(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ThreadRecord{}, storage.ErrNotFound
		}
		return storage.ThreadRecord{}, fmt.Errorf("get thread by campaign: %w", err)
	}
	return record, nil
}

// ThreadExists reports whether a thread row exists.
func (s *Store) ThreadExists(ctx context.Context, threadID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return false, fmt.Errorf("thread id is required")
	}

	var exists int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM threads WHERE id = ?)
`, threadID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check thread exists: %w", err)
	}
	return exists == 1, nil
}

// ListActiveThreads lists every active thread with conversation aggregates,
// most recently updated first.
func (s *Store) ListActiveThreads(ctx context.Context) ([]storage.ThreadSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT t.id, t.title, t.description, t.campaign_id, t.owner_id, t.status, t.created_at, t.updated_at,
       COUNT(c.id),
       COALESCE(SUM(c.unread_count), 0)
FROM threads t
LEFT JOIN conversations c ON c.thread_id = t.id
WHERE t.status = 'active'
GROUP BY t.id
ORDER BY t.updated_at DESC, t.id DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list active threads: %w", err)
	}
	defer rows.Close()
	return collectThreadSummaries(rows)
}

// ListThreadsForUser lists the active threads one user can see, either as
// owner or as a conversation participant, most recently updated first.
func (s *Store) ListThreadsForUser(ctx context.Context, userID string) ([]storage.ThreadSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT t.id, t.title, t.description, t.campaign_id, t.owner_id, t.status, t.created_at, t.updated_at,
       COUNT(c.id),
       COALESCE(SUM(c.unread_count), 0)
FROM threads t
LEFT JOIN conversations c ON c.thread_id = t.id
WHERE t.status = 'active'
  AND (t.owner_id = ?
       OR EXISTS (
           SELECT 1 FROM conversations p
           WHERE p.thread_id = t.id
             AND (p.participant1_id = ? OR p.participant2_id = ?)
       ))
GROUP BY t.id
ORDER BY t.updated_at DESC, t.id DESC
`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads for user: %w", err)
	}
	defer rows.Close()
	return collectThreadSummaries(rows)
}

// UserHasThreadAccess reports whether a user owns the thread or occupies a
// participant slot in any of its conversations.
func (s *Store) UserHasThreadAccess(ctx context.Context, threadID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	threadID = strings.TrimSpace(threadID)
	userID = strings.TrimSpace(userID)
	if threadID == "" {
		return false, fmt.Errorf("thread id is required")
	}
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}

	var allowed int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT EXISTS(
    SELECT 1 FROM threads t
    WHERE t.id = ?
      AND (t.owner_id = ?
           OR EXISTS (
               SELECT 1 FROM conversations c
               WHERE c.thread_id = t.id
                 AND (c.participant1_id = ? OR c.participant2_id = ?)
           ))
)
`, threadID, userID, userID, userID).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("check thread access: %w", err)
	}
	return allowed == 1, nil
}

func normalizeThreadRecord(record storage.ThreadRecord) (storage.ThreadRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.Title = strings.TrimSpace(record.Title)
	record.Description = strings.TrimSpace(record.Description)
	record.CampaignID = strings.TrimSpace(record.CampaignID)
	record.OwnerID = strings.TrimSpace(record.OwnerID)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID == "" {
		return storage.ThreadRecord{}, fmt.Errorf("thread id is required")
	}
	if record.Title == "" {
		return storage.ThreadRecord{}, fmt.Errorf("thread title is required")
	}
	if record.OwnerID == "" {
		return storage.ThreadRecord{}, fmt.Errorf("thread owner id is required")
	}
	if record.Status == "" {
		record.Status = "active"
	}
	if record.CreatedAt.IsZero() {
		return storage.ThreadRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.ThreadRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func scanThread(scan scanner) (storage.ThreadRecord, error) {
	var record storage.ThreadRecord
	var campaignID sql.NullString
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.Title,
		&record.Description,
		&campaignID,
		&record.OwnerID,
		&record.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.ThreadRecord{}, err
	}
	record.CampaignID = campaignID.String
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func collectThreadSummaries(rows *sql.Rows) ([]storage.ThreadSummary, error) {
	var summaries []storage.ThreadSummary
	for rows.Next() {
		var summary storage.ThreadSummary
		var campaignID sql.NullString
		var createdAt int64
		var updatedAt int64
		if err := rows.Scan(
			&summary.ID,
			&summary.Title,
			&summary.Description,
			&campaignID,
			&summary.OwnerID,
			&summary.Status,
			&createdAt,
			&updatedAt,
			&summary.ConversationCount,
			&summary.UnreadTotal,
		); err != nil {
			return nil, fmt.Errorf("scan thread summary row: %w", err)
		}
		summary.CampaignID = campaignID.String
		summary.CreatedAt = fromMillis(createdAt)
		summary.UpdatedAt = fromMillis(updatedAt)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread summary rows: %w", err)
	}
	return summaries, nil
}
