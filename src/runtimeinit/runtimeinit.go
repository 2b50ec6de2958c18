package runtimeinit

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"sefip-robot/src/clipboard"
	"sefip-robot/src/config"
	"sefip-robot/src/notification"
	"sefip-robot/src/sefip"
)

type Options struct {
	LoadOptions config.LoadOptions
	// SetupLogging returns the diagnostics logger once the config is known.
	SetupLogging      func(cfg *config.Config) zerolog.Logger
	ShowBlockingError bool
	InitClipboard     bool
}

// Bootstrap loads the configuration and checks the installation: the images
// directory must exist; missing template images only warn, since a run stops
// with a clear error at the first one it needs.
func Bootstrap(opts Options) (*config.Config, zerolog.Logger, error) {
	log := zerolog.Nop()
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, log, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		log = opts.SetupLogging(cfg)
	}
	log.Info().
		Str("images", cfg.ImagesDir).
		Str("logs", cfg.LogDir).
		Str("config", cfg.ConfigFile).
		Str("env", cfg.EnvFile).
		Msg("configuration loaded")

	if err := cfg.Validate(); err != nil {
		if opts.ShowBlockingError {
			notification.ShowBlockingError("Automação SEFIP",
				fmt.Sprintf("%v\n\nCrie a pasta 'imagens' ao lado do executável ou defina IMAGES_DIR.", err))
		}
		return nil, log, err
	}

	if missing := sefip.MissingAnchors(cfg.ImagesDir); len(missing) > 0 {
		log.Warn().Str("missing", strings.Join(missing, ", ")).Msg("template images not found")
	}

	if opts.InitClipboard {
		if err := clipboard.Init(); err != nil {
			log.Warn().Err(err).Msg("clipboard unavailable")
		}
	}
	return cfg, log, nil
}
