package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyptrb/messaging/internal/messaging/domain"
	"github.com/hyptrb/messaging/internal/messaging/storage"
)

const messageColumns = `id, conversation_id, thread_id, sender_id, sender_role, sender_name,
kind, content, text_content, caption, filename, file_size, attachments_json,
sent_at, delivery_status, deleted, deleted_at, created_at, updated_at`

// AppendMessage inserts one message row and, in the same transaction,
// refreshes the conversation's last-message summary and the parent thread's
// updated-at timestamp.
func (s *Store) AppendMessage(ctx context.Context, record storage.MessageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, attachmentsJSON, err := normalizeMessageRecord(record)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback message write: %v", cause, rollbackErr)
		}
		return cause
	}

	if err := insertMessageExec(ctx, tx, normalized, attachmentsJSON); err != nil {
		return rollbackWith(err)
	}
	if !normalized.Deleted {
		sentAt := toMillis(normalized.SentAt)
		if _, err := tx.ExecContext(ctx, `
UPDATE conversations
SET last_message = ?, last_message_at = ?, updated_at = ?
WHERE id = ?
`, normalized.Content, sentAt, sentAt, normalized.ConversationID); err != nil {
			return rollbackWith(fmt.Errorf("update conversation summary: %w", err))
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE threads SET updated_at = ? WHERE id = ?
`, sentAt, normalized.ThreadID); err != nil {
			return rollbackWith(fmt.Errorf("update thread activity: %w", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message write: %w", err)
	}
	return nil
}

func insertMessageExec(ctx context.Context, execer sqlExecer, record storage.MessageRecord, attachmentsJSON string) error {
	var deletedAt sql.NullInt64
	if record.DeletedAt != nil {
		deletedAt = sql.NullInt64{Int64: toMillis(*record.DeletedAt), Valid: true}
	}

	_, err := execer.ExecContext(ctx, `
	INSERT INTO messages (
		id, conversation_id, thread_id, sender_id, sender_role, sender_name,
		kind, content, text_content, caption, filename, file_size, attachments_json,
		sent_at, delivery_status, deleted, deleted_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.ConversationID,
		record.ThreadID,
		record.SenderID,
		record.SenderRole,
		record.SenderName,
		string(record.Kind),
		record.Content,
		record.TextContent,
		record.Caption,
		record.Filename,
		record.FileSize,
		attachmentsJSON,
		toMillis(record.SentAt),
		record.DeliveryStatus,
		boolToInt(record.Deleted),
		deletedAt,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		if isForeignKeyConstraintError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessage loads one message row by id.
func (s *Store) GetMessage(ctx context.Context, messageID string) (storage.MessageRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MessageRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MessageRecord{}, fmt.Errorf("storage is not configured")
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return storage.MessageRecord{}, fmt.Errorf("message id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE id = ?
`, messageID)
	record, err := scanMessage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MessageRecord{}, storage.ErrNotFound
		}
		return storage.MessageRecord{}, fmt.Errorf("get message: %w", err)
	}
	return record, nil
}

// ListMessagesByConversation lists a conversation's messages oldest-first.
func (s *Store) ListMessagesByConversation(ctx context.Context, conversationID string) ([]storage.MessageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE conversation_id = ?
ORDER BY sent_at ASC, id ASC
`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages by conversation: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// ListMessagesByThread lists every message in a thread oldest-first.
func (s *Store) ListMessagesByThread(ctx context.Context, threadID string) ([]storage.MessageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, fmt.Errorf("thread id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE thread_id = ?
ORDER BY sent_at ASC, id ASC
`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages by thread: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// GetLastMessage loads a conversation's most recent message.
func (s *Store) GetLastMessage(ctx context.Context, conversationID string) (storage.MessageRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MessageRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MessageRecord{}, fmt.Errorf("storage is not configured")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return storage.MessageRecord{}, fmt.Errorf("conversation id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE conversation_id = ?
ORDER BY sent_at DESC, id DESC
LIMIT 1
`, conversationID)
	record, err := scanMessage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MessageRecord{}, storage.ErrNotFound
		}
		return storage.MessageRecord{}, fmt.Errorf("get last message: %w", err)
	}
	return record, nil
}

// SoftDeleteMessage redacts one message in place. The transition is one-way;
// deleting an already-deleted message reports false without error. When the
// deleted message is the conversation's latest, the denormalized summary is
// redacted in the same transaction.
func (s *Store) SoftDeleteMessage(ctx context.Context, messageID string, deletedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return false, fmt.Errorf("message id is required")
	}
	if deletedAt.IsZero() {
		return false, fmt.Errorf("deleted_at is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin message delete: %w", err)
	}
	rollbackWith := func(cause error) (bool, error) {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return false, fmt.Errorf("%w: rollback message delete: %v", cause, rollbackErr)
		}
		return false, cause
	}

	var conversationID string
	var alreadyDeleted int
	err = tx.QueryRowContext(ctx, `
SELECT conversation_id, deleted FROM messages WHERE id = ?
`, messageID).Scan(&conversationID, &alreadyDeleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rollbackWith(storage.ErrNotFound)
		}
		return rollbackWith(fmt.Errorf("get message for delete: %w", err))
	}
	if alreadyDeleted != 0 {
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit message delete: %w", err)
		}
		return false, nil
	}

	now := deletedAt.UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE messages
SET kind = ?, content = ?, text_content = ?, caption = '', filename = '',
    file_size = 0, attachments_json = '[]', deleted = 1, deleted_at = ?, updated_at = ?
WHERE id = ? AND deleted = 0
`, string(domain.MessageKindDeleted), domain.DeletedPlaceholder, domain.DeletedPlaceholder, toMillis(now), toMillis(now), messageID); err != nil {
		return rollbackWith(fmt.Errorf("soft delete message: %w", err))
	}

	var latestID string
	err = tx.QueryRowContext(ctx, `
SELECT id FROM messages
WHERE conversation_id = ?
ORDER BY sent_at DESC, id DESC
LIMIT 1
`, conversationID).Scan(&latestID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return rollbackWith(fmt.Errorf("get latest message: %w", err))
	}
	if latestID == messageID {
		if _, err := tx.ExecContext(ctx, `
UPDATE conversations SET last_message = ?, updated_at = ? WHERE id = ?
`, domain.DeletedPlaceholder, toMillis(now), conversationID); err != nil {
			return rollbackWith(fmt.Errorf("redact conversation summary: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit message delete: %w", err)
	}
	return true, nil
}

func normalizeMessageRecord(record storage.MessageRecord) (storage.MessageRecord, string, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.ConversationID = strings.TrimSpace(record.ConversationID)
	record.ThreadID = strings.TrimSpace(record.ThreadID)
	record.SenderID = strings.TrimSpace(record.SenderID)
	record.SenderRole = strings.TrimSpace(record.SenderRole)
	record.SenderName = strings.TrimSpace(record.SenderName)
	record.DeliveryStatus = strings.TrimSpace(record.DeliveryStatus)
	if record.ID == "" {
		return storage.MessageRecord{}, "", fmt.Errorf("message id is required")
	}
	if record.ConversationID == "" {
		return storage.MessageRecord{}, "", fmt.Errorf("conversation id is required")
	}
	if record.ThreadID == "" {
		return storage.MessageRecord{}, "", fmt.Errorf("thread id is required")
	}
	if record.SenderID == "" {
		return storage.MessageRecord{}, "", fmt.Errorf("sender id is required")
	}
	if record.Kind == "" {
		record.Kind = domain.KindForAttachments(record.Attachments)
	}
	if record.DeliveryStatus == "" {
		record.DeliveryStatus = "sent"
	}
	if record.SentAt.IsZero() {
		return storage.MessageRecord{}, "", fmt.Errorf("sent_at is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.SentAt
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.SentAt
	}
	record.SentAt = record.SentAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.DeletedAt != nil {
		deletedAt := record.DeletedAt.UTC()
		record.DeletedAt = &deletedAt
	}

	attachmentsJSON := "[]"
	if len(record.Attachments) > 0 {
		encoded, err := json.Marshal(record.Attachments)
		if err != nil {
			return storage.MessageRecord{}, "", fmt.Errorf("encode attachments: %w", err)
		}
		attachmentsJSON = string(encoded)
	}
	return record, attachmentsJSON, nil
}

func scanMessage(scan scanner) (storage.MessageRecord, error) {
	var record storage.MessageRecord
	var kind string
	var attachmentsJSON string
	var sentAt int64
	var deleted int
	var deletedAt sql.NullInt64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.ConversationID,
		&record.ThreadID,
		&record.SenderID,
		&record.SenderRole,
		&record.SenderName,
		&kind,
		&record.Content,
		&record.TextContent,
		&record.Caption,
		&record.Filename,
		&record.FileSize,
		&attachmentsJSON,
		&sentAt,
		&record.DeliveryStatus,
		&deleted,
		&deletedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.MessageRecord{}, err
	}
	record.Kind = domain.MessageKind(kind)
	if attachmentsJSON != "" && attachmentsJSON != "[]" {
		if err := json.Unmarshal([]byte(attachmentsJSON), &record.Attachments); err != nil {
			return storage.MessageRecord{}, fmt.Errorf("decode attachments: %w", err)
		}
	}
	record.SentAt = fromMillis(sentAt)
	record.Deleted = deleted != 0
	if deletedAt.Valid {
		value := fromMillis(deletedAt.Int64)
		record.DeletedAt = &value
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func collectMessages(rows *sql.Rows) ([]storage.MessageRecord, error) {
	var records []storage.MessageRecord
	for rows.Next() {
		record, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return records, nil
}
