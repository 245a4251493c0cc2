package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyptrb/messaging/internal/messaging/domain"
	"github.com/hyptrb/messaging/internal/messaging/storage"
	"github.com/hyptrb/messaging/internal/platform/id"
)

const conversationColumns = `id, thread_id, name,
participant1_id, participant1_name, participant1_avatar_url,
participant2_id, participant2_name, participant2_avatar_url,
last_message, last_message_at, unread_count, status, created_at, updated_at`

// GetOrCreateConversation resolves one conversation for the participants.
// Paired requests store the pair in canonical order and look up before
// inserting, so repeated calls for the same unordered pair land on a single
// row. Single-participant requests always create a fresh row.
func (s *Store) GetOrCreateConversation(ctx context.Context, threadID string, participant1 domain.Participant, participant2 *domain.Participant, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	threadID = strings.TrimSpace(threadID)
	participant1.ID = strings.TrimSpace(participant1.ID)
	name = strings.TrimSpace(name)
	if threadID == "" {
		return "", fmt.Errorf("thread id is required")
	}
	if participant1.ID == "" {
		return "", fmt.Errorf("participant id is required")
	}
	if participant2 != nil {
		second := *participant2
		second.ID = strings.TrimSpace(second.ID)
		if second.ID == "" {
			return "", fmt.Errorf("second participant id is required")
		}
		first, canonical := domain.OrderPair(participant1, second)
		participant1 = first
		participant2 = &canonical

		existingID, err := s.conversationIDByPair(ctx, threadID, participant1.ID, canonical.ID)
		if err == nil {
			return existingID, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return "", err
		}
	}

	conversationID, err := id.NewPrefixedID("c")
	if err != nil {
		return "", fmt.Errorf("new conversation id: %w", err)
	}

	var p2ID, p2Name, p2Avatar sql.NullString
	if participant2 != nil {
		p2ID = sql.NullString{String: participant2.ID, Valid: true}
		p2Name = sql.NullString{String: participant2.Name, Valid: true}
		p2Avatar = sql.NullString{String: participant2.AvatarURL, Valid: true}
	}

	now := time.Now().UTC()
	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO conversations (
		id, thread_id, name,
		participant1_id, participant1_name, participant1_avatar_url,
		participant2_id, participant2_name, participant2_avatar_url,
		status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?, ?)
	`,
		conversationID,
		threadID,
		name,
		participant1.ID,
		participant1.Name,
		participant1.AvatarURL,
		p2ID,
		p2Name,
		p2Avatar,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		if isForeignKeyConstraintError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return conversationID, nil
}

func (s *Store) conversationIDByPair(ctx context.Context, threadID, participant1ID, participant2ID string) (string, error) {
	var conversationID string
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id FROM conversations
WHERE thread_id = ? AND participant1_id = ? AND participant2_id = ?
`, threadID, participant1ID, participant2ID).Scan(&conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get conversation by pair: %w", err)
	}
	return conversationID, nil
}

// GetConversation loads one conversation row by id.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (storage.ConversationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ConversationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ConversationRecord{}, fmt.Errorf("storage is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return storage.ConversationRecord{}, fmt.Errorf("conversation id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+conversationColumns+`
FROM conversations
WHERE id = ?
`, conversationID)
	record, err := scanConversation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ConversationRecord{}, storage.ErrNotFound
		}
		return storage.ConversationRecord{}, fmt.Errorf("get conversation: %w", err)
	}
	return record, nil
}

// ListConversationsByThread lists a thread's conversations, most recent
// message first. A non-empty participantID narrows the list to conversations
// that user occupies a slot in.
func (s *Store) ListConversationsByThread(ctx context.Context, threadID, participantID string) ([]storage.ConversationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	threadID = strings.TrimSpace(threadID)
	participantID = strings.TrimSpace(participantID)
	if threadID == "" {
		return nil, fmt.Errorf("thread id is required")
	}

	query := `
SELECT ` + conversationColumns + `
FROM conversations
WHERE thread_id = ?
`
	args := []any{threadID}
	if participantID != "" {
		query += "  AND (participant1_id = ? OR participant2_id = ?)\n"
		args = append(args, participantID, participantID)
	}
	query += "ORDER BY COALESCE(last_message_at, created_at) DESC, id DESC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var records []storage.ConversationRecord
	for rows.Next() {
		record, err := scanConversation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}
	return records, nil
}

// JoinConversation fills the second participant slot when it is still empty.
// It reports false when the slot was already occupied.
func (s *Store) JoinConversation(ctx context.Context, conversationID string, participant2 domain.Participant) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	participant2.ID = strings.TrimSpace(participant2.ID)
	if conversationID == "" {
		return false, fmt.Errorf("conversation id is required")
	}
	if participant2.ID == "" {
		return false, fmt.Errorf("participant id is required")
	}

	now := time.Now().UTC()
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE conversations
SET participant2_id = ?, participant2_name = ?, participant2_avatar_url = ?, updated_at = ?
WHERE id = ? AND participant2_id IS NULL
`, participant2.ID, participant2.Name, participant2.AvatarURL, toMillis(now), conversationID)
	if err != nil {
		return false, fmt.Errorf("join conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("join conversation rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	var exists int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT EXISTS(SELECT 1 FROM conversations WHERE id = ?)
`, conversationID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check conversation exists: %w", err)
	}
	if exists == 0 {
		return false, storage.ErrNotFound
	}
	return false, nil
}

// MarkConversationRead zeroes the unread counter and reports how many unread
// messages were cleared. Marking an already-read conversation is a no-op.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID string) (storage.ReadReceipt, error) {
	if err := ctx.Err(); err != nil {
		return storage.ReadReceipt{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ReadReceipt{}, fmt.Errorf("storage is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return storage.ReadReceipt{}, fmt.Errorf("conversation id is required")
	}

	var unread int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT unread_count FROM conversations WHERE id = ?
`, conversationID).Scan(&unread)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ReadReceipt{}, storage.ErrNotFound
		}
		return storage.ReadReceipt{}, fmt.Errorf("get conversation unread count: %w", err)
	}

	now := time.Now().UTC()
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE conversations
SET unread_count = 0, updated_at = ?
WHERE id = ? AND unread_count > 0
`, toMillis(now), conversationID)
	if err != nil {
		return storage.ReadReceipt{}, fmt.Errorf("mark conversation read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.ReadReceipt{}, fmt.Errorf("mark conversation read rows affected: %w", err)
	}
	return storage.ReadReceipt{Updated: affected > 0, ClearedCount: unread}, nil
}

func scanConversation(scan scanner) (storage.ConversationRecord, error) {
	var record storage.ConversationRecord
	var p2ID, p2Name, p2Avatar sql.NullString
	var lastMessageAt sql.NullInt64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.ThreadID,
		&record.Name,
		&record.Participant1.ID,
		&record.Participant1.Name,
		&record.Participant1.AvatarURL,
		&p2ID,
		&p2Name,
		&p2Avatar,
		&record.LastMessage,
		&lastMessageAt,
		&record.UnreadCount,
		&record.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.ConversationRecord{}, err
	}
	if p2ID.Valid {
		record.Participant2 = &domain.Participant{
			ID:        p2ID.String,
			Name:      p2Name.String,
			AvatarURL: p2Avatar.String,
		}
	}
	if lastMessageAt.Valid {
		value := fromMillis(lastMessageAt.Int64)
		record.LastMessageAt = &value
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
