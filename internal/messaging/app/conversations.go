package app

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/hyptrb/messaging/internal/errors"
	"github.com/hyptrb/messaging/internal/messaging/domain"
	"github.com/hyptrb/messaging/internal/messaging/storage"
)

// OpenConversationRequest carries the optional fields for opening a
// conversation under a thread.
type OpenConversationRequest struct {
	OtherParticipantID string
	Name               string
}

// OpenConversation resolves or creates a conversation in the caller's
// thread. Only the thread owner opens conversations; the owner always takes
// the first slot. With another participant the unordered pair resolves to one
// conversation; without one a fresh single-slot conversation is created with
// a name derived from the thread title.
func (s *Service) OpenConversation(ctx context.Context, userID, threadID string, req OpenConversationRequest) (storage.ConversationRecord, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ConversationRecord{}, apperrors.WithMetadata(apperrors.CodeNotFound, "thread not found", map[string]string{"Entity": "thread"})
		}
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get thread", err)
	}
	if thread.OwnerID != userID {
		return storage.ConversationRecord{}, apperrors.New(apperrors.CodeForbidden, "only the thread owner opens conversations")
	}

	owner, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ConversationRecord{}, apperrors.WithMetadata(apperrors.CodeNotFound, "thread owner not found", map[string]string{"Entity": "user"})
		}
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get thread owner", err)
	}
	participant1 := domain.Participant{ID: owner.ID, Name: owner.DisplayName, AvatarURL: owner.AvatarURL}

	var participant2 *domain.Participant
	otherID := strings.TrimSpace(req.OtherParticipantID)
	if otherID != "" {
		second := domain.Participant{ID: otherID, Name: "Participant"}
		other, err := s.store.GetUser(ctx, otherID)
		if err == nil {
			second.Name = other.DisplayName
			second.AvatarURL = other.AvatarURL
		} else if !errors.Is(err, storage.ErrNotFound) {
			return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get other participant", err)
		}
		participant2 = &second
	}

	name := strings.TrimSpace(req.Name)
	if name == "" && participant2 == nil {
		name = domain.DefaultConversationName(thread.Title)
	}

	conversationID, err := s.store.GetOrCreateConversation(ctx, threadID, participant1, participant2, name)
	if err != nil {
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "open conversation", err)
	}
	record, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get opened conversation", err)
	}
	return record, nil
}

// JoinConversation fills the second slot of a conversation. The slot is
// first-come-first-served: a filled slot rejects later joins, and the first
// participant cannot take the second slot too.
func (s *Service) JoinConversation(ctx context.Context, userID, threadID, conversationID string) (storage.ConversationRecord, error) {
	conversation, err := s.conversationInThread(ctx, threadID, conversationID)
	if err != nil {
		return storage.ConversationRecord{}, err
	}
	if conversation.Participant2 != nil {
		return storage.ConversationRecord{}, apperrors.New(apperrors.CodeConflict, "conversation already has a second participant")
	}
	if conversation.Participant1.ID == userID {
		return storage.ConversationRecord{}, apperrors.New(apperrors.CodeInvalidInput, "cannot join a conversation you already participate in")
	}

	joiner, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ConversationRecord{}, apperrors.WithMetadata(apperrors.CodeNotFound, "user not found", map[string]string{"Entity": "user"})
		}
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get joining user", err)
	}

	joined, err := s.store.JoinConversation(ctx, conversationID, domain.Participant{
		ID:        joiner.ID,
		Name:      joiner.DisplayName,
		AvatarURL: joiner.AvatarURL,
	})
	if err != nil {
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "join conversation", err)
	}
	if !joined {
		return storage.ConversationRecord{}, apperrors.New(apperrors.CodeConflict, "conversation already has a second participant")
	}
	record, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get joined conversation", err)
	}
	return record, nil
}

// MarkConversationRead clears the unread counter for a participant.
func (s *Service) MarkConversationRead(ctx context.Context, userID, threadID, conversationID string) (storage.ReadReceipt, error) {
	conversation, err := s.conversationInThread(ctx, threadID, conversationID)
	if err != nil {
		return storage.ReadReceipt{}, err
	}
	if !isParticipant(conversation, userID) {
		return storage.ReadReceipt{}, apperrors.New(apperrors.CodeForbidden, "not a participant in this conversation")
	}

	receipt, err := s.store.MarkConversationRead(ctx, conversationID)
	if err != nil {
		return storage.ReadReceipt{}, apperrors.Wrap(apperrors.CodeUnknown, "mark conversation read", err)
	}
	return receipt, nil
}

// ListConversations lists the conversations the caller can see in a thread:
// participant-scoped for owners and participants, unfiltered for admins.
func (s *Service) ListConversations(ctx context.Context, userID, threadID string) ([]storage.ConversationRecord, error) {
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "thread not found", map[string]string{"Entity": "thread"})
		}
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "get thread", err)
	}

	admin := s.isAdmin(ctx, userID)
	if !admin {
		allowed, err := s.store.UserHasThreadAccess(ctx, threadID, userID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknown, "check thread access", err)
		}
		if !allowed {
			return nil, apperrors.New(apperrors.CodeForbidden, "not an owner or participant of this thread")
		}
	}

	participantScope := userID
	if admin {
		participantScope = ""
	}
	conversations, err := s.store.ListConversationsByThread(ctx, threadID, participantScope)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "list conversations", err)
	}
	return conversations, nil
}

// conversationInThread resolves a conversation and verifies it belongs to
// the stated thread, distinguishing missing entities from wrong parents.
func (s *Service) conversationInThread(ctx context.Context, threadID, conversationID string) (storage.ConversationRecord, error) {
	exists, err := s.store.ThreadExists(ctx, threadID)
	if err != nil {
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "check thread exists", err)
	}
	if !exists {
		return storage.ConversationRecord{}, apperrors.WithMetadata(apperrors.CodeNotFound, "thread not found", map[string]string{"Entity": "thread"})
	}

	conversation, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ConversationRecord{}, apperrors.WithMetadata(apperrors.CodeNotFound, "conversation not found", map[string]string{"Entity": "conversation"})
		}
		return storage.ConversationRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get conversation", err)
	}
	if conversation.ThreadID != threadID {
		return storage.ConversationRecord{}, apperrors.WithMetadata(apperrors.CodeMismatch, "conversation does not belong to this thread", map[string]string{"Entity": "conversation", "Parent": "thread"})
	}
	return conversation, nil
}

func isParticipant(conversation storage.ConversationRecord, userID string) bool {
	if conversation.Participant1.ID == userID {
		return true
	}
	return conversation.Participant2 != nil && conversation.Participant2.ID == userID
}
