package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	deliveryService "github.com/reshetovitsme/folkomatic/internal/modules/delivery/service"
	feedService "github.com/reshetovitsme/folkomatic/internal/modules/feed/service"
	galleryService "github.com/reshetovitsme/folkomatic/internal/modules/gallery/service"
	newsRepo "github.com/reshetovitsme/folkomatic/internal/modules/news/repository"
	newsService "github.com/reshetovitsme/folkomatic/internal/modules/news/service"
	pledgeService "github.com/reshetovitsme/folkomatic/internal/modules/pledge/service"
	statusService "github.com/reshetovitsme/folkomatic/internal/modules/status/service"
	"github.com/reshetovitsme/folkomatic/internal/shared/config"
	httpServer "github.com/reshetovitsme/folkomatic/internal/transport/http"
	"github.com/reshetovitsme/folkomatic/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

const (
	// HTTPTimeout bounds every scrape and download.
	HTTPTimeout = 30 * time.Second

	// Outbound chat calls: one per second with small bursts.
	chatRate  = rate.Limit(1)
	chatBurst = 3
)

// Setup initializes the dependency injection container
func Setup(cfg *config.Config) (do.Injector, error) {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	// Register HTTP client shared by all scrapers
	do.Provide(injector, func(i do.Injector) (*http.Client, error) {
		return &http.Client{Timeout: HTTPTimeout}, nil
	})

	// Register News Repository
	do.Provide(injector, func(i do.Injector) (newsRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := newsRepo.NewSQLiteStorage(context.Background(), cfg.Database.Path, cfg.Database.Table)
		if err != nil {
			return nil, oops.With("database_path", cfg.Database.Path, "context", "failed to initialize news repository").Wrap(err)
		}
		return repo, nil
	})

	// Register News Fetcher and image loader
	do.Provide(injector, func(i do.Injector) (*newsService.Fetcher, error) {
		return newsService.NewFetcher(do.MustInvoke[*config.Config](i), do.MustInvoke[*http.Client](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*newsService.ImageLoader, error) {
		return newsService.NewImageLoader(do.MustInvoke[*http.Client](i)), nil
	})

	// Register Status Service and reporter
	do.Provide(injector, func(i do.Injector) (*statusService.Service, error) {
		return statusService.New(do.MustInvoke[*config.Config](i), do.MustInvoke[*http.Client](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*statusService.Reporter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return statusService.NewReporter(cfg, do.MustInvoke[*statusService.Service](i)), nil
	})

	// Register Gallery and Pledge Services
	do.Provide(injector, func(i do.Injector) (*galleryService.Service, error) {
		return galleryService.New(do.MustInvoke[*config.Config](i), do.MustInvoke[*http.Client](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*pledgeService.Service, error) {
		return pledgeService.New(do.MustInvoke[*config.Config](i), do.MustInvoke[*http.Client](i)), nil
	})

	// Register Delivery Loop
	do.Provide(injector, func(i do.Injector) (*deliveryService.Service, error) {
		return deliveryService.New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*newsService.Fetcher](i),
			do.MustInvoke[*newsService.ImageLoader](i),
			do.MustInvoke[newsRepo.Repository](i),
			do.MustInvoke[*statusService.Reporter](i),
		), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		return feedService.New(do.MustInvoke[*config.Config](i), do.MustInvoke[newsRepo.Repository](i)), nil
	})

	// Register Telegram Handler and connector
	do.Provide(injector, func(i do.Injector) (*telegram.Handler, error) {
		return telegram.New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*galleryService.Service](i),
			do.MustInvoke[*statusService.Reporter](i),
			do.MustInvoke[*pledgeService.Service](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*rate.Limiter, error) {
		return rate.NewLimiter(chatRate, chatBurst), nil
	})
	do.Provide(injector, func(i do.Injector) (*telegram.Connector, error) {
		return telegram.NewConnector(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*telegram.Handler](i),
			do.MustInvoke[*rate.Limiter](i),
		), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		server := httpServer.New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*deliveryService.Service](i),
			do.MustInvoke[*feedService.Service](i),
		)
		server.SetLogger(slog.Default())
		return server, nil
	})

	return injector, nil
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server, err := do.Invoke[*httpServer.Server](injector); err == nil && server != nil {
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Error stopping HTTP server", "error", err)
		}
	}

	if repo, err := do.Invoke[newsRepo.Repository](injector); err == nil && repo != nil {
		if err := repo.Close(); err != nil {
			return oops.With("context", "failed to close news repository").Wrap(err)
		}
	}

	return nil
}
