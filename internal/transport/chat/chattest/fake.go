// Package chattest provides an in-memory chat.Client for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
)

// Post is one recorded outbound action.
type Post struct {
	Kind      string // "text", "image" or "edit"
	Channel   string
	MessageID int
	Text      string
	Filename  string
	Data      []byte
}

// Fake records every call. FailOn makes the n-th call of a kind fail.
type Fake struct {
	mu     sync.Mutex
	posts  []Post
	nextID int
	calls  map[string]int

	Pinned int
	// FailOn maps a kind ("text", "image", "edit", "pinned", "me") to the
	// 1-based call number that fails; 0 means never.
	FailOn map[string]int
}

var _ chat.Conn = (*Fake)(nil)

func New() *Fake {
	return &Fake{nextID: 100, calls: map[string]int{}, FailOn: map[string]int{}}
}

func (f *Fake) fail(kind string) error {
	f.calls[kind]++
	if n := f.FailOn[kind]; n > 0 && f.calls[kind] == n {
		return fmt.Errorf("chattest: %s call %d failed", kind, n)
	}
	return nil
}

func (f *Fake) Me(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("me"); err != nil {
		return "", err
	}
	return "test_bot", nil
}

func (f *Fake) Channel(ctx context.Context, channel string) (chat.Channel, error) {
	return chat.Channel{Title: channel}, nil
}

func (f *Fake) SendText(ctx context.Context, channel string, msg chat.Message) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("text"); err != nil {
		return 0, err
	}
	f.nextID++
	f.posts = append(f.posts, Post{Kind: "text", Channel: channel, MessageID: f.nextID, Text: msg.Text})
	return f.nextID, nil
}

func (f *Fake) SendImage(ctx context.Context, channel, filename string, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("image"); err != nil {
		return 0, err
	}
	f.nextID++
	f.posts = append(f.posts, Post{Kind: "image", Channel: channel, MessageID: f.nextID, Filename: filename, Data: data})
	return f.nextID, nil
}

func (f *Fake) EditText(ctx context.Context, channel string, messageID int, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("edit"); err != nil {
		return err
	}
	f.posts = append(f.posts, Post{Kind: "edit", Channel: channel, MessageID: messageID, Text: msg.Text})
	return nil
}

func (f *Fake) PinnedMessageID(ctx context.Context, channel string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("pinned"); err != nil {
		return 0, err
	}
	if f.Pinned == 0 {
		return 0, fmt.Errorf("chattest: no pinned message in %s", channel)
	}
	return f.Pinned, nil
}

// Listen blocks until ctx is done.
func (f *Fake) Listen(ctx context.Context) {
	<-ctx.Done()
}

// Posts returns a copy of the recorded actions.
func (f *Fake) Posts() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Post(nil), f.posts...)
}

// Kinds filters recorded actions by kind.
func (f *Fake) Kinds(kind string) []Post {
	var out []Post
	for _, p := range f.Posts() {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}
