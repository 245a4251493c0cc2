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
)

// PutUser upserts one identity-linked profile row.
func (s *Store) PutUser(ctx context.Context, record storage.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeUserRecord(record)
	if err != nil {
		return err
	}

	var email sql.NullString
	if normalized.Email != "" {
		email = sql.NullString{String: normalized.Email, Valid: true}
	}
	var lastSeenAt sql.NullInt64
	if normalized.LastSeenAt != nil {
		lastSeenAt = sql.NullInt64{Int64: toMillis(*normalized.LastSeenAt), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO users (
		id, email, display_name, avatar_url, role, phone, email_verified, last_seen_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		email = excluded.email,
		display_name = excluded.display_name,
		avatar_url = excluded.avatar_url,
		role = excluded.role,
		phone = excluded.phone,
		email_verified = excluded.email_verified,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at
	`,
		normalized.ID,
		email,
		normalized.DisplayName,
		normalized.AvatarURL,
		string(normalized.Role),
		normalized.Phone,
		boolToInt(normalized.EmailVerified),
		lastSeenAt,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser loads one user row by id.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserRecord{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.UserRecord{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, display_name, avatar_url, role, phone, email_verified, last_seen_at, created_at, updated_at
FROM users
WHERE id = ?
`, userID)
	record, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return record, nil
}

// GetUserByEmail loads one user row by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (storage.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserRecord{}, fmt.Errorf("storage is not configured")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return storage.UserRecord{}, fmt.Errorf("email is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, display_name, avatar_url, role, phone, email_verified, last_seen_at, created_at, updated_at
FROM users
WHERE email = ?
`, email)
	record, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserRecord{}, storage.ErrNotFound
		}
		return storage.UserRecord{}, fmt.Errorf("get user by email: %w", err)
	}
	return record, nil
}

// ListUsers lists user rows newest-first with limit/offset pagination.
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]storage.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, email, display_name, avatar_url, role, phone, email_verified, last_seen_at, created_at, updated_at
FROM users
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	records := make([]storage.UserRecord, 0, limit)
	for rows.Next() {
		record, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return records, nil
}

// TouchUserLastSeen records a user's most recent activity time.
func (s *Store) TouchUserLastSeen(ctx context.Context, userID string, seenAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if seenAt.IsZero() {
		return fmt.Errorf("seen_at is required")
	}

	now := seenAt.UTC()
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users
SET last_seen_at = ?, updated_at = ?
WHERE id = ?
`, toMillis(now), toMillis(now), userID)
	if err != nil {
		return fmt.Errorf("touch user last seen: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch user last seen rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func normalizeUserRecord(record storage.UserRecord) (storage.UserRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.Email = strings.TrimSpace(strings.ToLower(record.Email))
	record.DisplayName = strings.TrimSpace(record.DisplayName)
	record.AvatarURL = strings.TrimSpace(record.AvatarURL)
	record.Role = domain.Role(strings.TrimSpace(string(record.Role)))
	record.Phone = strings.TrimSpace(record.Phone)
	if record.ID == "" {
		return storage.UserRecord{}, fmt.Errorf("user id is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.UserRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.UserRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.LastSeenAt != nil {
		lastSeenAt := record.LastSeenAt.UTC()
		record.LastSeenAt = &lastSeenAt
	}
	return record, nil
}

func scanUser(scan scanner) (storage.UserRecord, error) {
	var record storage.UserRecord
	var email sql.NullString
	var role string
	var emailVerified int
	var lastSeenAt sql.NullInt64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&email,
		&record.DisplayName,
		&record.AvatarURL,
		&role,
		&record.Phone,
		&emailVerified,
		&lastSeenAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.UserRecord{}, err
	}
	record.Email = email.String
	record.Role = domain.Role(role)
	record.EmailVerified = emailVerified != 0
	if lastSeenAt.Valid {
		value := fromMillis(lastSeenAt.Int64)
		record.LastSeenAt = &value
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
