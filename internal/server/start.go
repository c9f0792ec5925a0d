package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsdeck/opsdeck/internal/pubsub"
	"github.com/opsdeck/opsdeck/internal/websocket"
)

// Start runs the background services and the HTTP server, then blocks until
// an interrupt arrives and shuts everything down.
func (s *Server) Start(addr string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.runCancel = cancel

	go s.hub.Run()
	s.Loader.Start(ctx)

	if err := websocket.Bridge(ctx, s.bus, s.hub, pubsub.TopicRegistryChanged); err != nil {
		slog.Error("Failed to bridge bus topics to the live socket", "error", err)
	}

	go func() {
		if err := s.scripts.Watch(ctx); err != nil {
			slog.Warn("Script watcher stopped", "error", err)
		}
	}()

	go func() {
		if err := s.E.Start(addr); err != nil && err != http.ErrServerClosed {
			s.E.Logger.Fatalf("shutting down the server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.Shutdown()
}

// Shutdown stops the loader, the hub and the HTTP server, then releases the
// container-managed services.
func (s *Server) Shutdown() {
	if s.runCancel != nil {
		s.runCancel()
	}

	s.Loader.Close()

	// Unregister in reverse registration order so dependents tear down
	// before their dependencies, giving every OnDestroy hook a chance to run.
	defs := s.Registry.All()
	for i := len(defs) - 1; i >= 0; i-- {
		if err := s.Registry.Unregister(defs[i].ID); err != nil {
			slog.Warn("Failed to unregister module during shutdown", "module", defs[i].ID, "error", err)
		}
	}

	s.hub.Stop()
	if err := s.bus.Close(); err != nil {
		slog.Warn("Failed to close message bus", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.DB.Close(ctx)
	if err := s.E.Shutdown(ctx); err != nil {
		s.E.Logger.Fatal(err)
	}

	s.injector.Shutdown()
}
