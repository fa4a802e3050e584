// Package chat is the collaborator contract for the chat platform. The
// engine dictates what gets sent and in what order; rendering and
// transport details stay behind the Gateway interface.
package chat

import "context"

// File is one attachment re-uploaded into a channel message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// SentMessage identifies a delivered channel message and the durable
// locations the platform assigned to its attachments, in send order.
type SentMessage struct {
	ID             string
	AttachmentURLs []string
}

// Gateway abstracts the chat platform operations the engine needs.
type Gateway interface {
	// SendMessage posts content to a channel or thread and returns the
	// message id.
	SendMessage(ctx context.Context, channelID, content string) (string, error)

	// SendFiles posts content plus attachments as a single message.
	SendFiles(ctx context.Context, channelID, content string, files []File) (*SentMessage, error)

	// CreateThread creates a named thread under a channel and returns the
	// thread id, which doubles as a channel id for SendMessage.
	CreateThread(ctx context.Context, channelID, name string) (string, error)

	// SendDirectMessage delivers content to a user's DM channel.
	SendDirectMessage(ctx context.Context, userID, content string) (string, error)

	// AddReaction attaches an emoji reaction to an existing message.
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error

	// GrantRole grants a community role to a user.
	GrantRole(ctx context.Context, userID, roleID string) error
}
