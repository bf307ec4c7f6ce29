package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/renderframe/internal/config"
	"github.com/danmuck/renderframe/internal/node"
	"github.com/danmuck/renderframe/internal/observability"
	"github.com/danmuck/renderframe/internal/stats"
	"github.com/rs/zerolog/log"
)

func main() {
	observability.InitLogger("statsd")
	configPath := flag.String("config", "cmd/statsd/config.toml", "path to stats collector config")
	flag.Parse()

	cfg, err := config.LoadStatsConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load stats config")
	}
	log.Info().Str("path", *configPath).Msg("loaded stats config")

	collector := stats.Appear(cfg)
	collector.RegisterRoutes()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := node.Serve(ctx, collector, cfg.Addr); err != nil {
		log.Error().Err(err).Msg("statsd stopped")
	}
}
