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

// MessageView is a stored message with its derived display type.
type MessageView struct {
	storage.MessageRecord
	DisplayType string
}

// AppendMessageRequest carries one outbound message.
type AppendMessageRequest struct {
	Text        string
	Caption     string
	Attachments []domain.Attachment
}

// AppendMessage appends one message to a conversation the caller
// participates in. The sender's display name and role are snapshotted from
// the stored user at send time.
func (s *Service) AppendMessage(ctx context.Context, userID, threadID, conversationID string, req AppendMessageRequest) (MessageView, error) {
	conversation, err := s.conversationInThread(ctx, threadID, conversationID)
	if err != nil {
		return MessageView{}, err
	}
	if !isParticipant(conversation, userID) {
		return MessageView{}, apperrors.New(apperrors.CodeForbidden, "not a participant in this conversation")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Attachments) == 0 {
		return MessageView{}, apperrors.New(apperrors.CodeInvalidInput, "message needs text or attachments")
	}

	senderName := "User"
	senderRole := ""
	if sender, err := s.store.GetUser(ctx, userID); err == nil {
		if sender.DisplayName != "" {
			senderName = sender.DisplayName
		}
		senderRole = string(sender.Role)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return MessageView{}, apperrors.Wrap(apperrors.CodeUnknown, "get sender", err)
	}

	attachments := make([]domain.Attachment, len(req.Attachments))
	copy(attachments, req.Attachments)
	for i := range attachments {
		if attachments[i].Kind == "" {
			attachments[i].Kind = domain.MediaKindForFilename(attachments[i].OriginalFilename)
		}
		if attachments[i].Kind != domain.MediaKindImage || attachments[i].Width != 0 {
			continue
		}
		if dims, ok := s.probe(attachments[i].FilePath); ok {
			attachments[i].Width = dims.Width
			attachments[i].Height = dims.Height
		}
	}

	messageID, err := id.NewPrefixedID("m")
	if err != nil {
		return MessageView{}, apperrors.Wrap(apperrors.CodeUnknown, "new message id", err)
	}

	record := storage.MessageRecord{
		ID:             messageID,
		ConversationID: conversationID,
		ThreadID:       threadID,
		SenderID:       userID,
		SenderRole:     senderRole,
		SenderName:     senderName,
		Kind:           domain.KindForAttachments(attachments),
		Content:        text,
		TextContent:    text,
		Caption:        strings.TrimSpace(req.Caption),
		Attachments:    attachments,
		SentAt:         s.now().UTC(),
	}
	if len(attachments) > 0 {
		record.Filename = attachments[0].Filename
		record.FileSize = attachments[0].FileSize
		if record.Content == "" {
			record.Content = attachments[0].OriginalFilename
		}
	}

	if err := s.store.AppendMessage(ctx, record); err != nil {
		return MessageView{}, apperrors.Wrap(apperrors.CodeUnknown, "append message", err)
	}
	stored, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return MessageView{}, apperrors.Wrap(apperrors.CodeUnknown, "get appended message", err)
	}
	return newMessageView(stored), nil
}

// GetMessage loads one message with full parent scoping.
func (s *Service) GetMessage(ctx context.Context, userID, threadID, conversationID, messageID string) (MessageView, error) {
	_, record, err := s.messageInConversation(ctx, userID, threadID, conversationID, messageID)
	if err != nil {
		return MessageView{}, err
	}
	return newMessageView(record), nil
}

// ListMessages lists a conversation's messages oldest-first for one of its
// participants.
func (s *Service) ListMessages(ctx context.Context, userID, threadID, conversationID string) ([]MessageView, error) {
	conversation, err := s.conversationInThread(ctx, threadID, conversationID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(conversation, userID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not a participant in this conversation")
	}

	records, err := s.store.ListMessagesByConversation(ctx, conversationID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknown, "list messages", err)
	}
	views := make([]MessageView, 0, len(records))
	for _, record := range records {
		views = append(views, newMessageView(record))
	}
	return views, nil
}

// DeleteMessage soft-deletes one message. Only the sender deletes their own
// messages; deleting an already-deleted message is a no-op success.
func (s *Service) DeleteMessage(ctx context.Context, userID, threadID, conversationID, messageID string) error {
	_, record, err := s.messageInConversation(ctx, userID, threadID, conversationID, messageID)
	if err != nil {
		return err
	}
	if record.SenderID != userID {
		return apperrors.New(apperrors.CodeForbidden, "only the sender deletes a message")
	}
	if record.Deleted {
		return nil
	}

	if _, err := s.store.SoftDeleteMessage(ctx, messageID, s.now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.WithMetadata(apperrors.CodeNotFound, "message not found", map[string]string{"Entity": "message"})
		}
		return apperrors.Wrap(apperrors.CodeUnknown, "delete message", err)
	}
	return nil
}

func (s *Service) messageInConversation(ctx context.Context, userID, threadID, conversationID, messageID string) (storage.ConversationRecord, storage.MessageRecord, error) {
	conversation, err := s.conversationInThread(ctx, threadID, conversationID)
	if err != nil {
		return storage.ConversationRecord{}, storage.MessageRecord{}, err
	}
	if !isParticipant(conversation, userID) {
		return storage.ConversationRecord{}, storage.MessageRecord{}, apperrors.New(apperrors.CodeForbidden, "not a participant in this conversation")
	}

	record, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ConversationRecord{}, storage.MessageRecord{}, apperrors.WithMetadata(apperrors.CodeNotFound, "message not found", map[string]string{"Entity": "message"})
		}
		return storage.ConversationRecord{}, storage.MessageRecord{}, apperrors.Wrap(apperrors.CodeUnknown, "get message", err)
	}
	if record.ConversationID != conversationID {
		return storage.ConversationRecord{}, storage.MessageRecord{}, apperrors.WithMetadata(apperrors.CodeMismatch, "message does not belong to this conversation", map[string]string{"Entity": "message", "Parent": "conversation"})
	}
	if record.ThreadID != threadID {
		return storage.ConversationRecord{}, storage.MessageRecord{}, apperrors.WithMetadata(apperrors.CodeMismatch, "message does not belong to this thread", map[string]string{"Entity": "message", "Parent": "thread"})
	}
	return conversation, record, nil
}

func newMessageView(record storage.MessageRecord) MessageView {
	return MessageView{
		MessageRecord: record,
		DisplayType:   domain.DisplayType(record.Kind, record.TextContent, record.Attachments),
	}
}
