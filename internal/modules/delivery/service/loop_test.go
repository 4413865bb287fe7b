package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reshetovitsme/folkomatic/internal/modules/delivery/domain"
	newsdomain "github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	apperrors "github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat/chattest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNews struct {
	items []newsdomain.NewsItem
	err   error
	calls atomic.Int32
	// panicOn makes the n-th call panic.
	panicOn int32
}

func (f *fakeNews) Refresh(ctx context.Context) ([]newsdomain.NewsItem, error) {
	n := f.calls.Add(1)
	if n == f.panicOn {
		panic("feed parser exploded")
	}
	return f.items, f.err
}

type fakeImages struct {
	fail map[string]bool
}

func (f fakeImages) Load(ctx context.Context, url string) ([]byte, error) {
	if f.fail[url] {
		return nil, apperrors.ErrFetch
	}
	return []byte("jpeg:" + url), nil
}

type memStore struct {
	mu       sync.Mutex
	titles   map[string]bool
	appended [][]newsdomain.NewsItem
}

func newMemStore(titles ...string) *memStore {
	s := &memStore{titles: map[string]bool{}}
	for _, t := range titles {
		s.titles[t] = true
	}
	return s
}

func (s *memStore) FilterNew(ctx context.Context, items []newsdomain.NewsItem) ([]newsdomain.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []newsdomain.NewsItem
	for _, item := range items {
		if !s.titles[item.Title] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memStore) Append(ctx context.Context, items []newsdomain.NewsItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.titles[item.Title] = true
	}
	s.appended = append(s.appended, items)
	return len(items), nil
}

func (s *memStore) batches() [][]newsdomain.NewsItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]newsdomain.NewsItem(nil), s.appended...)
}

type fakeReporter struct {
	err      error
	calls    atomic.Int32
	onReport func(n int32)
}

func (f *fakeReporter) Report(ctx context.Context, client chat.Client, post bool) error {
	n := f.calls.Add(1)
	if post {
		panic("loop must not post a new status message")
	}
	if f.onReport != nil {
		f.onReport(n)
	}
	return f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Chat.NewsChannel = "-100111"
	cfg.Chat.StatusChannel = "-100222"
	cfg.Chat.DelaySeconds = 3600
	return cfg
}

func item(title string) newsdomain.NewsItem {
	return newsdomain.NewsItem{
		Title:    title,
		Link:     "https://news.test/" + title,
		Summary:  "<p>about " + title + "</p>",
		ImageURL: "https://img.test/" + title + ".png",
	}
}

func newTestService(news NewsSource, images ImageSource, store Deduper, status StatusReporter) *Service {
	return New(testConfig(), news, images, store, status, WithPacing(0))
}

func deliveredTitles(posts []chattest.Post) []string {
	var titles []string
	for _, p := range posts {
		if p.Kind != "text" {
			continue
		}
		start := strings.Index(p.Text, "<b>") + len("<b>")
		end := strings.Index(p.Text, "</b>")
		titles = append(titles, p.Text[start:end])
	}
	return titles
}

// TestCycle_DeliversOnlyNewItems covers a three entry feed whose first entry
// was already delivered; the last entry never reaches the loop.
func TestCycle_DeliversOnlyNewItems(t *testing.T) {
	news := &fakeNews{items: []newsdomain.NewsItem{item("one"), item("two")}}
	store := newMemStore("one")
	reporter := &fakeReporter{}
	client := chattest.New()

	svc := newTestService(news, fakeImages{}, store, reporter)
	require.NoError(t, svc.Cycle(context.Background(), client))

	posts := client.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, "image", posts[0].Kind)
	assert.Equal(t, "-100111", posts[0].Channel)
	assert.Equal(t, "news.jpg", posts[0].Filename)
	assert.Equal(t, []byte("jpeg:https://img.test/two.png"), posts[0].Data)
	assert.Equal(t, "text", posts[1].Kind)
	assert.Equal(t, "<b>two</b>\nhttps://news.test/two\nabout two", posts[1].Text)

	batches := store.batches()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"two"}, newsdomain.Titles(batches[0]))
	assert.Equal(t, int32(1), reporter.calls.Load())
}

// TestCycle_DeliversInReverseOrder verifies the oldest new entry goes first
func TestCycle_DeliversInReverseOrder(t *testing.T) {
	items := []newsdomain.NewsItem{item("newest"), item("middle"), item("oldest")}
	news := &fakeNews{items: items}
	store := newMemStore()
	client := chattest.New()

	svc := newTestService(news, fakeImages{}, store, &fakeReporter{})
	require.NoError(t, svc.Cycle(context.Background(), client))

	assert.Equal(t, []string{"oldest", "middle", "newest"}, deliveredTitles(client.Posts()))
	// The recorded batch keeps feed order.
	assert.Equal(t, []string{"newest", "middle", "oldest"}, newsdomain.Titles(store.batches()[0]))
}

// TestCycle_NothingNew verifies an empty batch still refreshes the status
func TestCycle_NothingNew(t *testing.T) {
	news := &fakeNews{items: []newsdomain.NewsItem{item("one")}}
	store := newMemStore("one")
	reporter := &fakeReporter{}
	client := chattest.New()

	svc := newTestService(news, fakeImages{}, store, reporter)
	require.NoError(t, svc.Cycle(context.Background(), client))

	assert.Empty(t, client.Posts())
	assert.Empty(t, store.batches())
	assert.Equal(t, int32(1), reporter.calls.Load())
}

// TestCycle_StatusFailureIsNotFatal verifies status errors do not end the cycle
func TestCycle_StatusFailureIsNotFatal(t *testing.T) {
	news := &fakeNews{items: []newsdomain.NewsItem{item("one")}}
	reporter := &fakeReporter{err: apperrors.ErrFetch}

	svc := newTestService(news, fakeImages{}, newMemStore(), reporter)
	assert.NoError(t, svc.Cycle(context.Background(), chattest.New()))
}

// TestCycle_FetchFailure verifies a broken feed aborts the cycle
func TestCycle_FetchFailure(t *testing.T) {
	news := &fakeNews{err: apperrors.ErrFetch}
	reporter := &fakeReporter{}

	svc := newTestService(news, fakeImages{}, newMemStore(), reporter)
	err := svc.Cycle(context.Background(), chattest.New())
	assert.ErrorIs(t, err, apperrors.ErrFetch)
	assert.Zero(t, reporter.calls.Load())
}

// TestCycle_ImageFailureSkipsAppend verifies a failed batch is not recorded
func TestCycle_ImageFailureSkipsAppend(t *testing.T) {
	news := &fakeNews{items: []newsdomain.NewsItem{item("good"), item("bad")}}
	images := fakeImages{fail: map[string]bool{"https://img.test/good.png": true}}
	store := newMemStore()
	client := chattest.New()

	svc := newTestService(news, images, store, &fakeReporter{})
	err := svc.Cycle(context.Background(), client)
	require.ErrorIs(t, err, apperrors.ErrFetch)

	// "bad" is older and was delivered before the failure.
	assert.Equal(t, []string{"bad"}, deliveredTitles(client.Posts()))
	assert.Empty(t, store.batches())
}

// TestCycle_SendFailure verifies chat errors are classified as delivery errors
func TestCycle_SendFailure(t *testing.T) {
	news := &fakeNews{items: []newsdomain.NewsItem{item("one")}}
	client := chattest.New()
	client.FailOn["image"] = 1

	svc := newTestService(news, fakeImages{}, newMemStore(), &fakeReporter{})
	err := svc.Cycle(context.Background(), client)
	assert.ErrorIs(t, err, apperrors.ErrDelivery)
}

// TestRun_NotAuthenticated verifies the loop refuses to start without a session
func TestRun_NotAuthenticated(t *testing.T) {
	news := &fakeNews{}
	client := chattest.New()
	client.FailOn["me"] = 1

	svc := newTestService(news, fakeImages{}, newMemStore(), &fakeReporter{})
	err := svc.Run(context.Background(), client)
	assert.ErrorIs(t, err, apperrors.ErrDelivery)
	assert.Zero(t, news.calls.Load())
	assert.Equal(t, domain.LoopStateIdle, svc.State())
}

// TestRun_TriggerWakesSleep verifies the admin trigger starts the next cycle early
func TestRun_TriggerWakesSleep(t *testing.T) {
	news := &fakeNews{}
	svc := newTestService(news, fakeImages{}, newMemStore(), &fakeReporter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, chattest.New()) }()

	require.Eventually(t, func() bool {
		return svc.State() == domain.LoopStateSleeping
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), news.calls.Load())

	assert.True(t, svc.Trigger())
	require.Eventually(t, func() bool {
		return news.calls.Load() == 2 && svc.State() == domain.LoopStateSleeping
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
	assert.Equal(t, domain.LoopStateIdle, svc.State())
}

// TestTrigger_Coalesces verifies pending wake-ups are not stacked
func TestTrigger_Coalesces(t *testing.T) {
	svc := newTestService(&fakeNews{}, fakeImages{}, newMemStore(), &fakeReporter{})
	assert.True(t, svc.Trigger())
	assert.False(t, svc.Trigger())
}

func TestWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, wait(ctx, time.Hour, nil), context.Canceled)

	wake := make(chan struct{}, 1)
	wake <- struct{}{}
	assert.NoError(t, wait(context.Background(), time.Hour, wake))

	assert.NoError(t, wait(context.Background(), time.Millisecond, nil))
}
