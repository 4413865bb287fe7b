package service

import (
	"context"
	"sync"
	"time"

	"github.com/reshetovitsme/folkomatic/internal/transport/chat"
	"github.com/samber/oops"
)

// Serve keeps a delivery session alive until ctx is done. Each session opens
// a fresh connection, listens for commands in the background and runs the
// delivery loop; a failure tears the session down and a new one starts after
// cooldown.
func (s *Service) Serve(ctx context.Context, connector chat.Connector, cooldown time.Duration) error {
	return Supervise(ctx, "delivery", cooldown, func(ctx context.Context) error {
		sctx, cancel := context.WithCancel(ctx)
		defer cancel()

		conn, err := connector.Connect(sctx)
		if err != nil {
			return oops.With("context", "failed to connect to chat").Wrap(err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.Listen(sctx)
		}()
		defer func() {
			cancel()
			wg.Wait()
		}()

		return s.Run(sctx, conn)
	})
}
