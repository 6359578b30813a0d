package main

import (
	"flag"

	"github.com/danmuck/serial9/internal/config"
	"github.com/danmuck/serial9/internal/observability"
)

const defaultPath = "cmd/serial9ctl/config.toml"

func main() {
	logger := observability.InitLogger("configgen")

	kind := flag.String("kind", "serial9", "config kind: serial9|tcp|emulator")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to cmd/serial9ctl/config.toml)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath
		}
		cfg, err := config.LoadBridgeConfig(path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("configgen validate failed")
		}
		logger.Info().Str("id", cfg.ID).Str("transport", cfg.Transport).Str("path", path).Msg("configgen validated")
		return
	}

	target := *output
	if target == "" {
		target = defaultPath
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		logger.Fatal().Err(err).Str("path", target).Msg("configgen write failed")
	}
	logger.Info().Str("kind", *kind).Str("path", target).Msg("configgen wrote template")
}
