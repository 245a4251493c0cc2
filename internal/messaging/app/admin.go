package app

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/hyptrb/messaging/internal/errors"
	"github.com/hyptrb/messaging/internal/messaging/domain"
	"github.com/hyptrb/messaging/internal/messaging/storage"
)

// SupportChannel is a thread plus the admin's conversation in it.
type SupportChannel struct {
	Thread       storage.ThreadRecord
	Conversation storage.ConversationRecord
}

// AdminJoinCampaign opens the owner-admin conversation on a campaign's
// thread so support can step into an existing campaign.
func (s *Service) AdminJoinCampaign(ctx context.Context, adminID, campaignID string) (SupportChannel, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return SupportChannel{}, err
	}

	thread, err := s.store.GetThreadByCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SupportChannel{}, apperrors.WithMetadata(apperrors.CodeNotFound, "campaign thread not found", map[string]string{"Entity": "thread"})
		}
		return SupportChannel{}, apperrors.Wrap(apperrors.CodeUnknown, "get campaign thread", err)
	}
	if thread.OwnerID == adminID {
		return SupportChannel{}, apperrors.New(apperrors.CodeInvalidInput, "cannot join your own campaign")
	}

	owner, err := s.store.GetUser(ctx, thread.OwnerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SupportChannel{}, apperrors.WithMetadata(apperrors.CodeNotFound, "thread owner not found", map[string]string{"Entity": "user"})
		}
		return SupportChannel{}, apperrors.Wrap(apperrors.CodeUnknown, "get thread owner", err)
	}

	conversation, err := s.pairConversation(ctx, thread.ID, owner, admin)
	if err != nil {
		return SupportChannel{}, err
	}
	return SupportChannel{Thread: thread, Conversation: conversation}, nil
}

// OpenSupportThread resolves the ad-hoc support thread for one user,
// creating it on first use. The thread is keyed by a synthetic campaign id
// derived from the target user so each user has exactly one support thread,
// owned by the target user with the admin in the second slot.
func (s *Service) OpenSupportThread(ctx context.Context, adminID, targetUserID string) (SupportChannel, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return SupportChannel{}, err
	}
	if targetUserID == adminID {
		return SupportChannel{}, apperrors.New(apperrors.CodeInvalidInput, "cannot open a support thread with yourself")
	}

	target, err := s.store.GetUser(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SupportChannel{}, apperrors.WithMetadata(apperrors.CodeNotFound, "user not found", map[string]string{"Entity": "user"})
		}
		return SupportChannel{}, apperrors.Wrap(apperrors.CodeUnknown, "get support target", err)
	}

	title := fmt.Sprintf("Support for %s", target.DisplayName)
	thread, _, err := s.CreateThread(ctx, target.ID, title, fmt.Sprintf("Support messages for %s", target.DisplayName), domain.SupportCampaignID(target.ID))
	if err != nil {
		return SupportChannel{}, err
	}

	conversation, err := s.pairConversation(ctx, thread.ID, target, admin)
	if err != nil {
		return SupportChannel{}, err
	}
	return SupportChannel{Thread: thread, Conversation: conversation}, nil
}

// Stats reports store-wide totals for the admin dashboard.
func (s *Service) Stats(ctx context.Context, adminID string) (storage.Stats, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return storage.Stats{}, err
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return storage.Stats{}, apperrors.Wrap(apperrors.CodeUnknown, "collect stats", err)
	}
	return stats, nil
}

func (s *Service) requireAdmin(ctx context.Context, adminID string) (storage.UserRecord, error) {
	record, err := s.store.GetUser(ctx, adminID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.UserRecord{}, apperrors.New(apperrors.CodeForbidden, "admin access required")
		}
		return storage.UserRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get admin", err)
	}
	if record.Role != domain.RoleAdmin {
		return storage.UserRecord{}, apperrors.New(apperrors.CodeForbidden, "admin access required")
	}
	return record, nil
}

func (s *Service) pairConversation(ctx context.Context, threadID string, first, second storage.UserRecord) (storage.ConversationRecord, error) {
	conversationID, err := s.store.GetOrCreateConversation(ctx, threadID,
		domain.Participant{ID: first.ID, Name: first.DisplayName, AvatarURL: first.AvatarURL},
		&domain.Participant{ID: second.ID, Name: second.DisplayName, AvatarURL: second.AvatarURL},
		"")
	if err != nil {
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "open pair conversation", err)
	}
	record, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get pair conversation", err)
	}
	return record, nil
}
