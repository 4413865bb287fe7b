package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	newsdomain "github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat/chattest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCooldown = 10 * time.Millisecond

// fakeConnector hands out a new fake client per session.
type fakeConnector struct {
	mu      sync.Mutex
	conns   []*chattest.Fake
	prepare func(n int, c *chattest.Fake)
	err     error
}

func (f *fakeConnector) Connect(ctx context.Context) (chat.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c := chattest.New()
	if f.prepare != nil {
		f.prepare(len(f.conns)+1, c)
	}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeConnector) sessions() []*chattest.Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*chattest.Fake(nil), f.conns...)
}

func TestSupervise_RestartsOnError(t *testing.T) {
	var runs atomic.Int32
	err := Supervise(context.Background(), "test", testCooldown, func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), runs.Load())
}

func TestSupervise_RecoversPanic(t *testing.T) {
	var runs atomic.Int32
	err := Supervise(context.Background(), "test", testCooldown, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			panic("unexpected")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), runs.Load())
}

// TestSupervise_CooldownIsCancellable verifies shutdown does not wait for the cooldown
func TestSupervise_CooldownIsCancellable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	start := time.Now()
	err := Supervise(ctx, "test", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		cancel()
		return errors.New("boom")
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), runs.Load())
	assert.Less(t, time.Since(start), time.Second)
}

// TestServe_RestartsFromTheStart fails a session in the middle of delivery and
// checks the next session refreshes the feed again and redelivers the item,
// since nothing was recorded.
func TestServe_RestartsFromTheStart(t *testing.T) {
	news := &fakeNews{items: []newsdomain.NewsItem{item("one")}}
	store := newMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reporter := &fakeReporter{onReport: func(int32) { cancel() }}

	connector := &fakeConnector{prepare: func(n int, c *chattest.Fake) {
		if n == 1 {
			// The picture goes out, the caption does not.
			c.FailOn["text"] = 1
		}
	}}

	svc := newTestService(news, fakeImages{}, store, reporter)
	require.NoError(t, svc.Serve(ctx, connector, testCooldown))

	sessions := connector.sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, int32(2), news.calls.Load())

	assert.Len(t, sessions[0].Kinds("image"), 1)
	assert.Empty(t, sessions[0].Kinds("text"))
	assert.Len(t, sessions[1].Kinds("image"), 1)
	assert.Equal(t, []string{"one"}, deliveredTitles(sessions[1].Posts()))

	batches := store.batches()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"one"}, newsdomain.Titles(batches[0]))
}

// TestServe_RecoversPanicInCycle verifies a panicking fetch only costs one session
func TestServe_RecoversPanicInCycle(t *testing.T) {
	news := &fakeNews{items: []newsdomain.NewsItem{item("one")}, panicOn: 1}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reporter := &fakeReporter{onReport: func(int32) { cancel() }}
	connector := &fakeConnector{}

	svc := newTestService(news, fakeImages{}, newMemStore(), reporter)
	require.NoError(t, svc.Serve(ctx, connector, testCooldown))

	assert.Len(t, connector.sessions(), 2)
	assert.Equal(t, int32(1), reporter.calls.Load())
}

// TestServe_ConnectFailureRetries verifies a failed login is retried
func TestServe_ConnectFailureRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	connector := &fakeConnector{err: errors.New("unauthorized")}
	svc := newTestService(&fakeNews{}, fakeImages{}, newMemStore(), &fakeReporter{})

	require.NoError(t, svc.Serve(ctx, connector, testCooldown))
	assert.Empty(t, connector.sessions())
}
