package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"campaign-console/internal/api"
	"campaign-console/internal/cache"
	"campaign-console/internal/config"
	"campaign-console/internal/dispatcher"
	"campaign-console/internal/listener"
	"campaign-console/internal/remote"
	"campaign-console/internal/session"
	"campaign-console/internal/storage"
)

// Server wires the console: remote store client, query cache, dispatcher,
// sessions, HTTP router and the optional change listener.
type Server struct {
	cfg      config.Config
	disp     *dispatcher.Dispatcher
	handler  http.Handler
	listener *listener.Listener
	closers  []func()
}

func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	s := &Server{cfg: cfg}

	c, err := s.newCache(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.disp = dispatcher.New(remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout), c)

	h := api.NewConsoleHandler(s.disp, session.NewStore(cfg.Session.TTL))
	h.SecureCookie = cfg.Server.SecureCookie
	s.handler = api.Router(h, logger, cfg.Server.RequestTimeout)

	if cfg.Listener.Enabled {
		store, err := storage.New(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("init storage: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		if err := store.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("dsn", cfg.DSNRedacted()).Msg("postgres unreachable; listener will keep retrying")
		}
		s.listener = listener.New(store, s.disp, cfg.Listener.Channel, cfg.Backoff(), cfg.Debounce())
	}

	log.Info().
		Str("remote", cfg.Remote.BaseURL).
		Str("cache", cfg.Cache.Backend).
		Bool("listener", cfg.Listener.Enabled).
		Msg("console wired")
	return s, nil
}

func (s *Server) newCache(ctx context.Context) (cache.Cache, error) {
	if s.cfg.Cache.Backend != config.CacheRedis {
		return cache.NewMemory(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
		PoolSize: s.cfg.Redis.PoolSize,
	})
	s.closers = append(s.closers, func() { _ = rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", s.cfg.Redis.Addr, err)
	}
	return cache.NewRedis(rdb, s.cfg.Cache.Namespace, s.cfg.Cache.TTL), nil
}

func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	listenerDone := make(chan struct{})
	if s.listener != nil {
		go func() {
			defer close(listenerDone)
			s.listener.Run(bgCtx)
		}()
	} else {
		close(listenerDone)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("http server starting")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		cancel()
		<-listenerDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server crashed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown...")
	shCtx, shCancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer shCancel()
	cancel() // stop background goroutines
	err := srv.Shutdown(shCtx)
	<-listenerDone
	return err
}

// Close releases the cache and database connections.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
