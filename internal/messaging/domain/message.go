package domain

import (
	"path/filepath"
	"strings"
)

// MessageKind is the stored logical type of a message.
type MessageKind string

const (
	MessageKindText MessageKind = "text"
	MessageKindFile MessageKind = "file"
	// MessageKindDeleted marks a soft-deleted message; the transition to it
	// is one-way.
	MessageKindDeleted MessageKind = "deleted"
)

// DeletedPlaceholder replaces message content on soft delete.
const DeletedPlaceholder = "This message was deleted"

// MediaKind classifies an attachment by its content.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindFile  MediaKind = "file"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true,
}

// MediaKindForFilename derives the media kind from a filename extension.
func MediaKindForFilename(filename string) MediaKind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case imageExtensions[ext]:
		return MediaKindImage
	case videoExtensions[ext]:
		return MediaKindVideo
	default:
		return MediaKindFile
	}
}

// Attachment is the stored metadata for one uploaded file.
type Attachment struct {
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	Kind             MediaKind `json:"type"`
	Width            int       `json:"width,omitempty"`
	Height           int       `json:"height,omitempty"`
}

// KindForAttachments derives the stored message kind: file if any attachment
// is present, text otherwise.
func KindForAttachments(attachments []Attachment) MessageKind {
	if len(attachments) > 0 {
		return MessageKindFile
	}
	return MessageKindText
}

// DisplayType is derived presentation metadata computed on read, never
// stored. Deleted messages and messages with no attachments are always
// "text"; otherwise the first attachment's media kind is used, suffixed
// with "+text" when the message also carries non-empty text content.
func DisplayType(kind MessageKind, textContent string, attachments []Attachment) string {
	if kind == MessageKindDeleted || len(attachments) == 0 {
		return "text"
	}
	display := string(attachments[0].Kind)
	if strings.TrimSpace(textContent) != "" {
		display += "+text"
	}
	return display
}
