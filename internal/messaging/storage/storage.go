// Package storage defines the durable records and store contracts for the
// messaging core. The SQLite implementation lives in the sqlite subpackage;
// every other component operates through these interfaces and holds no state
// of its own beyond request-scoped variables.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyptrb/messaging/internal/messaging/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
)

// UserRecord stores one identity-linked profile. The ID is the external
// subject id issued by the identity provider.
type UserRecord struct {
	ID            string
	Email         string
	DisplayName   string
	AvatarURL     string
	Role          domain.Role
	Phone         string
	EmailVerified bool
	LastSeenAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ThreadRecord stores one collaboration container. CampaignID is empty for
// unconstrained threads; when set, (CampaignID, OwnerID) is unique.
type ThreadRecord struct {
	ID          string
	Title       string
	Description string
	CampaignID  string
	OwnerID     string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ThreadSummary is a thread listing row with conversation aggregates.
type ThreadSummary struct {
	ThreadRecord
	ConversationCount int
	UnreadTotal       int
}

// ConversationRecord stores one two-slot channel nested in a thread.
// Participant2 is nil until a second party joins; once set it never changes.
type ConversationRecord struct {
	ID            string
	ThreadID      string
	Name          string
	Participant1  domain.Participant
	Participant2  *domain.Participant
	LastMessage   string
	LastMessageAt *time.Time
	UnreadCount   int
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MessageRecord stores one immutable unit of communication. Only the
// soft-delete transition mutates it after insert.
type MessageRecord struct {
	ID             string
	ConversationID string
	ThreadID       string
	SenderID       string
	SenderRole     string
	SenderName     string
	Kind           domain.MessageKind
	Content        string
	TextContent    string
	Caption        string
	Filename       string
	FileSize       int64
	Attachments    []domain.Attachment
	SentAt         time.Time
	DeliveryStatus string
	Deleted        bool
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReadReceipt reports the outcome of a mark-read call.
type ReadReceipt struct {
	Updated      bool
	ClearedCount int
}

// Stats aggregates store-wide totals for the health surface.
type Stats struct {
	TotalUsers          int
	ActiveThreads       int
	ActiveConversations int
	UnreadTotal         int
	TotalMessages       int
}

// UserStore persists identity-linked profiles.
type UserStore interface {
	PutUser(ctx context.Context, record UserRecord) error
	GetUser(ctx context.Context, userID string) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	ListUsers(ctx context.Context, limit, offset int) ([]UserRecord, error)
	TouchUserLastSeen(ctx context.Context, userID string, seenAt time.Time) error
}

// ThreadStore persists collaboration containers with idempotent creation.
type ThreadStore interface {
	// CreateThread inserts the thread or, when (CampaignID, OwnerID) already
	// exists, returns the existing thread id. The bool reports whether a new
	// row was inserted. Concurrent creations for the same pair resolve to a
	// single row.
	CreateThread(ctx context.Context, record ThreadRecord) (string, bool, error)
	GetThread(ctx context.Context, threadID string) (ThreadRecord, error)
	GetThreadByCampaign(ctx context.Context, campaignID string) (ThreadRecord, error)
	ThreadExists(ctx context.Context, threadID string) (bool, error)
	ListActiveThreads(ctx context.Context) ([]ThreadSummary, error)
	ListThreadsForUser(ctx context.Context, userID string) ([]ThreadSummary, error)
	UserHasThreadAccess(ctx context.Context, threadID, userID string) (bool, error)
}

// ConversationStore persists two-slot channels and their read state.
type ConversationStore interface {
	// GetOrCreateConversation resolves a conversation for the participants.
	// With a second participant the pair is stored in canonical order and an
	// existing conversation for the same unordered pair is returned instead
	// of inserting. Without one, a fresh single-slot conversation is always
	// created.
	GetOrCreateConversation(ctx context.Context, threadID string, participant1 domain.Participant, participant2 *domain.Participant, name string) (string, error)
	GetConversation(ctx context.Context, conversationID string) (ConversationRecord, error)
	ListConversationsByThread(ctx context.Context, threadID, participantID string) ([]ConversationRecord, error)
	// JoinConversation fills the second slot if and only if it is still
	// empty. It reports false when the slot was already occupied.
	JoinConversation(ctx context.Context, conversationID string, participant2 domain.Participant) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID string) (ReadReceipt, error)
}

// MessageStore persists append-only messages and their soft-delete state.
type MessageStore interface {
	// AppendMessage inserts the message and, in the same transaction,
	// refreshes the conversation's last-message summary and the thread's
	// updated-at timestamp. Already-deleted messages skip the summary.
	AppendMessage(ctx context.Context, record MessageRecord) error
	GetMessage(ctx context.Context, messageID string) (MessageRecord, error)
	ListMessagesByConversation(ctx context.Context, conversationID string) ([]MessageRecord, error)
	ListMessagesByThread(ctx context.Context, threadID string) ([]MessageRecord, error)
	GetLastMessage(ctx context.Context, conversationID string) (MessageRecord, error)
	// SoftDeleteMessage redacts the message content one-way. It reports
	// false without error when the message was already deleted.
	SoftDeleteMessage(ctx context.Context, messageID string, deletedAt time.Time) (bool, error)
}

// StatsStore reports store-wide totals.
type StatsStore interface {
	Stats(ctx context.Context) (Stats, error)
}

// Store is the full persistence surface handed to the service layer at
// startup. Lifecycle is explicit: open on process start, Close on shutdown.
type Store interface {
	UserStore
	ThreadStore
	ConversationStore
	MessageStore
	StatsStore
	Close() error
}
