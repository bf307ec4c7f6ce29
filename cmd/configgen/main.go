package main

import (
	"flag"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/renderframe/internal/config"
	"github.com/danmuck/renderframe/internal/observability"
	"github.com/rs/zerolog/log"
)

func main() {
	observability.InitLogger("configgen")
	kind := flag.String("kind", "stats", "config kind: stats|frame")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		if err := validateConfig(*kind, path); err != nil {
			log.Fatal().Err(err).Str("kind", *kind).Str("path", path).Msg("config invalid")
		}
		log.Info().Str("kind", *kind).Str("path", path).Msg("config valid")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("write template failed")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}

func defaultPath(kind string) string {
	switch kind {
	case "stats":
		return "cmd/statsd/config.toml"
	case "frame":
		return "cmd/framed/config.toml"
	default:
		log.Fatal().Str("kind", kind).Msg("unknown config kind")
		return ""
	}
}

// validateConfig fully checks stats configs. Frame configs are owned by
// framed, which validates them at startup; here only their syntax is checked.
func validateConfig(kind, path string) error {
	if kind == "stats" {
		_, err := config.LoadStatsConfig(path)
		return err
	}
	var raw map[string]any
	_, err := toml.DecodeFile(path, &raw)
	return err
}
