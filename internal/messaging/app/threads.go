package app

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/hyptrb/messaging/internal/errors"
	"github.com/hyptrb/messaging/internal/messaging/domain"
	"github.com/hyptrb/messaging/internal/messaging/storage"
	"github.com/hyptrb/messaging/internal/platform/id"
)

// ThreadView is a thread with the conversations visible to the caller.
type ThreadView struct {
	Thread        storage.ThreadRecord
	Conversations []storage.ConversationRecord
}

// CreateThread creates a thread for the owner or returns the existing one for
// the same (campaign id, owner) pair.
func (s *Service) CreateThread(ctx context.Context, ownerID, title, description, campaignID string) (storage.ThreadRecord, bool, error) {
	ownerID = strings.TrimSpace(ownerID)
	title = strings.TrimSpace(title)
	if ownerID == "" {
		return storage.ThreadRecord{}, false, apperrors.New(apperrors.CodeInvalidInput, "owner id is required")
	}
	if title == "" {
		return storage.ThreadRecord{}, false, apperrors.New(apperrors.CodeInvalidInput, "thread title is required")
	}

	threadID, err := id.NewPrefixedID("t")
	if err != nil {
		return storage.ThreadRecord{}, false, apperrors.Wrap(apperrors.CodeUnknown, "new thread id", err)
	}
	now := s.now().UTC()
	resolvedID, created, err := s.store.CreateThread(ctx, storage.ThreadRecord{
		ID:          threadID,
		Title:       title,
		Description: description,
		CampaignID:  campaignID,
		OwnerID:     ownerID,
		Status:      domain.ThreadStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ThreadRecord{}, false, apperrors.WithMetadata(apperrors.CodeNotFound, "thread owner not found", map[string]string{"Entity": "user"})
		}
		return storage.ThreadRecord{}, false, apperrors.Wrap(apperrors.CodeUnknown, "create thread", err)
	}

	record, err := s.store.GetThread(ctx, resolvedID)
	if err != nil {
		return storage.ThreadRecord{}, false, apperrors.Wrap(apperrors.CodeUnknown, "get created thread", err)
	}
	return record, created, nil
}

// GetThread returns one thread with the caller's conversation view. Owners
// and conversation participants see the thread; admins see every thread with
// the unfiltered conversation list.
func (s *Service) GetThread(ctx context.Context, userID, threadID string) (ThreadView, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ThreadView{}, apperrors.WithMetadata(apperrors.CodeNotFound, "thread not found", map[string]string{"Entity": "thread"})
		}
		return ThreadView{}, apperrors.Wrap(apperrors.CodeUnknown, "get thread", err)
	}

	admin := s.isAdmin(ctx, userID)
	if !admin {
		allowed, err := s.store.UserHasThreadAccess(ctx, threadID, userID)
		if err != nil {
			return ThreadView{}, apperrors.Wrap(apperrors.CodeUnknown, "check thread access", err)
		}
		if !allowed {
			return ThreadView{}, apperrors.New(apperrors.CodeForbidden, "not an owner or participant of this thread")
		}
	}

	participantScope := userID
	if admin {
		participantScope = ""
	}
	conversations, err := s.store.ListConversationsByThread(ctx, threadID, participantScope)
	if err != nil {
		return ThreadView{}, apperrors.Wrap(apperrors.CodeUnknown, "list thread conversations", err)
	}
	return ThreadView{Thread: thread, Conversations: conversations}, nil
}

// ListThreads syncs the user's campaign threads and then lists the threads
// they can see. Admins see every active thread. The int reports how many
// threads the sync pass created.
func (s *Service) ListThreads(ctx context.Context, user storage.UserRecord) ([]storage.ThreadSummary, int, error) {
	synced := s.syncer.SyncUserThreads(ctx, user.ID, user.Email, user.Role)

	var (
		threads []storage.ThreadSummary
		err     error
	)
	if user.Role == domain.RoleAdmin {
		threads, err = s.store.ListActiveThreads(ctx)
	} else {
		threads, err = s.store.ListThreadsForUser(ctx, user.ID)
	}
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeUnknown, "list threads", err)
	}
	return threads, synced, nil
}

func (s *Service) isAdmin(ctx context.Context, userID string) bool {
	record, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false
	}
	return record.Role == domain.RoleAdmin
}
