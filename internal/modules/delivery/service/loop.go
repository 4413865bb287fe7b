package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/reshetovitsme/folkomatic/internal/modules/delivery/domain"
	newsdomain "github.com/reshetovitsme/folkomatic/internal/modules/news/domain"
	newsservice "github.com/reshetovitsme/folkomatic/internal/modules/news/service"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	apperrors "github.com/reshetovitsme/folkomatic/internal/shared/errors"
	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
	"github.com/samber/oops"
)

const (
	// DefaultPacing is the pause after every delivered news item.
	DefaultPacing = 15 * time.Second
	newsImageName = "news.jpg"
)

type NewsSource interface {
	Refresh(ctx context.Context) ([]newsdomain.NewsItem, error)
}

type ImageSource interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

// Deduper remembers which news items were already delivered.
type Deduper interface {
	FilterNew(ctx context.Context, items []newsdomain.NewsItem) ([]newsdomain.NewsItem, error)
	Append(ctx context.Context, items []newsdomain.NewsItem) (int, error)
}

type StatusReporter interface {
	Report(ctx context.Context, client chat.Client, post bool) error
}

// Service drives the periodic news delivery and status refresh.
type Service struct {
	news     NewsSource
	images   ImageSource
	store    Deduper
	status   StatusReporter
	channels []string
	channel  string
	delay    time.Duration
	pacing   time.Duration

	state   atomic.Value
	trigger chan struct{}
}

type Option func(*Service)

// WithPacing overrides the pause between delivered items.
func WithPacing(d time.Duration) Option {
	return func(s *Service) { s.pacing = d }
}

// WithDelay overrides the sleep between cycles.
func WithDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

func New(cfg *config.Config, news NewsSource, images ImageSource, store Deduper, status StatusReporter, opts ...Option) *Service {
	s := &Service{
		news:    news,
		images:  images,
		store:   store,
		status:  status,
		channel: cfg.Chat.NewsChannel,
		channels: []string{
			cfg.Chat.NewsChannel,
			cfg.Chat.StatusChannel,
		},
		delay:   cfg.Delay(),
		pacing:  DefaultPacing,
		trigger: make(chan struct{}, 1),
	}
	s.state.Store(domain.LoopStateIdle)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the phase the loop is currently in.
func (s *Service) State() domain.LoopState {
	return s.state.Load().(domain.LoopState)
}

func (s *Service) setState(state domain.LoopState) {
	s.state.Store(state)
	slog.Debug("Delivery loop state", "state", state)
}

// Trigger wakes the loop if it is sleeping. Calls while a wake-up is already
// pending are dropped.
func (s *Service) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run waits for the connection to be ready and then runs cycles until ctx is
// done or a cycle fails.
func (s *Service) Run(ctx context.Context, client chat.Client) error {
	s.setState(domain.LoopStateAwaitingReady)
	defer s.setState(domain.LoopStateIdle)

	me, err := client.Me(ctx)
	if err != nil {
		return oops.With("context", "bot is not authenticated").Wrap(errors.Join(apperrors.ErrDelivery, err))
	}
	slog.Info("Logged in as", "bot", me)

	for _, id := range s.channels {
		ch, err := client.Channel(ctx, id)
		if err != nil {
			return oops.With("channel", id).Wrap(errors.Join(apperrors.ErrDelivery, err))
		}
		slog.Info("Channel ready", "channel", id, "title", ch.Title)
	}

	for {
		if err := s.Cycle(ctx, client); err != nil {
			return err
		}

		s.setState(domain.LoopStateSleeping)
		if err := wait(ctx, s.delay, s.trigger); err != nil {
			return err
		}
	}
}

// Cycle fetches, delivers and records new items, then refreshes the status
// message. News failures are returned; status failures are only reported.
func (s *Service) Cycle(ctx context.Context, client chat.Client) error {
	s.setState(domain.LoopStateFetchingNews)
	items, err := s.news.Refresh(ctx)
	if err != nil {
		return err
	}
	fresh, err := s.store.FilterNew(ctx, items)
	if err != nil {
		return err
	}
	slog.Info("News fetched", "entries", len(items), "new", len(fresh))

	s.setState(domain.LoopStateDeliveringNews)
	ordered := slices.Clone(fresh)
	slices.Reverse(ordered)
	for _, item := range ordered {
		if err := s.deliver(ctx, client, item); err != nil {
			return err
		}
		if err := wait(ctx, s.pacing, nil); err != nil {
			return err
		}
	}

	if len(fresh) > 0 {
		if n, err := s.store.Append(ctx, fresh); err != nil {
			slog.Error("Failed to record delivered news", "recorded", n, "total", len(fresh), "error", err)
		}
	}

	s.setState(domain.LoopStateCheckingStatus)
	if err := s.status.Report(ctx, client, false); err != nil {
		// Already announced in the status channel; the cycle still counts.
		slog.Debug("Status refresh failed, continuing", "error", err)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, client chat.Client, item newsdomain.NewsItem) error {
	img, err := s.images.Load(ctx, item.ImageURL)
	if err != nil {
		return oops.With("title", item.Title, "image", item.ImageURL).Wrap(err)
	}

	if _, err := client.SendImage(ctx, s.channel, newsImageName, img); err != nil {
		return oops.With("title", item.Title, "channel", s.channel).Wrap(errors.Join(apperrors.ErrDelivery, err))
	}
	if _, err := client.SendText(ctx, s.channel, newsservice.Format(item)); err != nil {
		return oops.With("title", item.Title, "channel", s.channel).Wrap(errors.Join(apperrors.ErrDelivery, err))
	}
	slog.Info("News delivered", "title", item.Title)
	return nil
}

// wait blocks for d unless ctx is done first or wake fires. A nil wake
// channel is never ready.
func wait(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wake:
		slog.Info("Delivery loop woken up")
		return nil
	case <-timer.C:
		return nil
	}
}
