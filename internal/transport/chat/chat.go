// Package chat is the boundary between the bot's core and the chat platform.
// Channels are referenced by the identifiers found in the settings file.
package chat

import "context"

// Message is an outbound text. HTML enables basic markup such as <b>.
type Message struct {
	Text string
	HTML bool
}

// Channel describes a chat the bot can post to.
type Channel struct {
	ID    int64
	Title string
}

// Client is everything the core needs from the chat platform.
type Client interface {
	// Me returns the bot's own account name; it fails when not authenticated.
	Me(ctx context.Context) (string, error)
	Channel(ctx context.Context, channel string) (Channel, error)
	SendText(ctx context.Context, channel string, msg Message) (int, error)
	SendImage(ctx context.Context, channel, filename string, data []byte) (int, error)
	EditText(ctx context.Context, channel string, messageID int, msg Message) error
	// PinnedMessageID returns the id of the channel's pinned message.
	PinnedMessageID(ctx context.Context, channel string) (int, error)
}

// Conn is one authenticated connection. Listen dispatches inbound events to
// the registered command handlers until ctx is done.
type Conn interface {
	Client
	Listen(ctx context.Context)
}

// Connector opens a fresh connection; it is called again after every crash.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}
