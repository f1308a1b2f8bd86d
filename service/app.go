package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"campusblogs/app/blobstore"
	"campusblogs/app/config"
	"campusblogs/app/docstore"
	"campusblogs/app/identity"
	"campusblogs/app/repositories"
	"campusblogs/app/routes"
	"campusblogs/app/services"

	"github.com/rs/zerolog/log"
)

// app is the wired service: store, services and HTTP handler.
type app struct {
	store      *docstore.BadgerStore
	posts      *services.PostService
	engagement *services.EngagementService
	handler    http.Handler
}

// buildApp opens the store and wires every layer on top of it. The caller
// closes the store.
func buildApp(cfg config.Config) (*app, error) {
	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	blobs, err := blobstore.NewFileStore(cfg.Blobs.Dir, cfg.Blobs.PublicBaseURL)
	if err != nil {
		store.Close()
		return nil, err
	}

	var verifier identity.Verifier
	if cfg.Auth.Secret != "" {
		provider, err := identity.NewJWTProvider(identity.Config{
			Secret:   cfg.Auth.Secret,
			Issuer:   cfg.Auth.Issuer,
			TokenTTL: cfg.Auth.TokenTTL,
		})
		if err != nil {
			store.Close()
			return nil, err
		}
		verifier = provider
	} else {
		log.Warn().Msg("auth secret not set; every request is anonymous")
	}

	postRepo := repositories.NewDocPostRepository(store)
	commentRepo := repositories.NewDocCommentRepository(store)
	posts := services.NewPostService(postRepo, commentRepo, blobs, services.PostOptions{
		LatestLimit:           cfg.Feed.LatestLimit,
		CascadeCommentDeletes: cfg.Content.CascadeCommentDeletes,
	})
	engagement := services.NewEngagementService(commentRepo, postRepo)

	router := routes.SetupRoutes(routes.Deps{
		Posts:          posts,
		Engagement:     engagement,
		Verifier:       verifier,
		BlobDir:        blobs.Root(),
		BlobURLPrefix:  cfg.Blobs.PublicBaseURL,
		RequestTimeout: cfg.Server.RequestTimeout,
		ExcerptLength:  cfg.Feed.ExcerptLength,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	return &app{store: store, posts: posts, engagement: engagement, handler: router}, nil
}

// RunAppServer serves the API until SIGINT or SIGTERM.
func RunAppServer(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.store.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	return serve(ctx, a.handler, ln, cfg.Server.ShutdownTimeout)
}

// serve runs an HTTP server on ln until ctx is done, then drains in-flight
// requests for at most shutdownTimeout.
func serve(ctx context.Context, handler http.Handler, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("campusblogs listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
