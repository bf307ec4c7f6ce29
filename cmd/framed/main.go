package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/renderframe/internal/bridge"
	"github.com/danmuck/renderframe/internal/node"
	"github.com/danmuck/renderframe/internal/observability"
	"github.com/danmuck/renderframe/internal/render"
	"github.com/danmuck/renderframe/internal/render/mmdc"
	"github.com/danmuck/renderframe/internal/sanitize"
	"github.com/danmuck/renderframe/internal/telemetry"
	"github.com/rs/zerolog/log"
)

func main() {
	logger := observability.InitLogger("framed")
	configPath := flag.String("config", "cmd/framed/config.toml", "path to framed config")
	flag.Parse()

	cfg, err := loadServiceConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load framed config")
	}
	log.Info().Str("path", *configPath).Msg("loaded framed config")

	engineCfg := cfg.Engine
	engineCfg.Logger = &logger
	engine, err := mmdc.New(engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up diagram engine")
	}
	renderer := render.NewRenderer(engine, sanitize.New(), &logger)
	beacons := telemetry.New(telemetry.Config{
		BaseURL: cfg.RenderURL,
		Format:  cfg.Format,
		Logger:  &logger,
	})

	server := bridge.New(cfg, renderer, beacons)
	server.RegisterRoutes()
	defer server.Close()
	defer beacons.Wait()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := node.Serve(ctx, server, cfg.Addr); err != nil {
		log.Error().Err(err).Msg("framed stopped")
	}
}
