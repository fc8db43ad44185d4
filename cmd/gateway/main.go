// SPDX-License-Identifier: MIT

// Command gateway runs the multi-upstream media gateway HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wavelink/gateway/internal/api"
	"github.com/wavelink/gateway/internal/auth"
	"github.com/wavelink/gateway/internal/cache"
	"github.com/wavelink/gateway/internal/catalog"
	"github.com/wavelink/gateway/internal/config"
	"github.com/wavelink/gateway/internal/health"
	xglog "github.com/wavelink/gateway/internal/log"
	"github.com/wavelink/gateway/internal/mediaproxy"
	"github.com/wavelink/gateway/internal/registry"
	"github.com/wavelink/gateway/internal/resolver"
	"github.com/wavelink/gateway/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "gateway"})
	logger := xglog.L()

	store := buildCache(cfg)

	reg := registry.New(cfg.RegistryConfig())
	tracker := health.New()
	client := upstream.New(reg, tracker, store)
	res := resolver.New(client, store)
	proxy := mediaproxy.New(res, cfg.MaxConcurrentStreams)
	cat := catalog.New(client, cfg.MusicRegion)
	issuer := auth.NewIssuer(cfg.JWTSecret, 24*time.Hour)

	srv := api.New(reg, res, proxy, cat, issuer, store)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str(xglog.FieldEvent, "server.listen").Str("addr", cfg.ListenAddr).Msg("gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("gateway server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Str(xglog.FieldEvent, "server.shutdown").Msg("gateway shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("gateway shutdown error")
	}
}

// buildCache constructs the TTL Cache tier: Redis when configured, falling
// back to the in-memory implementation otherwise.
func buildCache(cfg config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(time.Minute)
	}
	c, err := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, *xglog.L())
	if err != nil {
		xglog.L().Warn().Err(err).Msg("redis cache unavailable, falling back to in-memory cache")
		return cache.NewMemoryCache(time.Minute)
	}
	return c
}
