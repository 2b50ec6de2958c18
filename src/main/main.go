package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sefip-robot/src/config"
	"sefip-robot/src/eventloop"
	"sefip-robot/src/gui"
	"sefip-robot/src/hotkey"
	"sefip-robot/src/logutil"
	"sefip-robot/src/messages"
	"sefip-robot/src/runtimeinit"
	"sefip-robot/src/session"
	"sefip-robot/src/singleinstance"
	"sefip-robot/src/tray"
)

const appID = "br.com.sefip.robot"

type mainOptions struct {
	configPath string
	imagesDir  string
	batchPath  string
	verbose    bool
	noLogFile  bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args, cmd.Flags())[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sefip-robot",
		Short:         "Automação SEFIP - processamento em lote",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a TOML configuration file")
	cmd.Flags().StringVar(&opts.imagesDir, "images-dir", "", "Directory with the template images (overrides IMAGES_DIR)")
	cmd.Flags().StringVar(&opts.batchPath, "batch", "", "Batch CSV selected at startup")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Record debug events in the run log")
	cmd.Flags().BoolVar(&opts.noLogFile, "no-log-file", false, "Disable the diagnostics log file")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags (-batch x) to the
// double-dash form cobra expects.
func normalizeLegacyArgs(args []string, flags *pflag.FlagSet) []string {
	if len(args) == 0 {
		return []string{"sefip-robot"}
	}
	var names []string
	flags.VisitAll(func(f *pflag.Flag) {
		if len(f.Name) > 1 {
			names = append(names, f.Name)
		}
	})

	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range names {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

func runWithOptions(opts mainOptions) error {
	// DPI awareness must be set before any window exists or the template
	// coordinates drift on scaled displays.
	enableDPIAwareness()

	cfg, log, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			ConfigPath:        opts.configPath,
			ImagesDirOverride: opts.imagesDir,
		},
		SetupLogging: func(cfg *config.Config) zerolog.Logger {
			if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
			}
			return logutil.Setup(!opts.noLogFile, cfg.LogDir)
		},
		ShowBlockingError: true,
		InitClipboard:     true,
	})
	if err != nil {
		return err
	}
	logMonitorConfiguration(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// One robot per desktop: a second copy brings the first to the front.
	raise := make(chan struct{}, 1)
	resident, err := singleinstance.Claim(ctx, singleinstance.Port(), log, func() {
		select {
		case raise <- struct{}{}:
		default:
		}
	})
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		fmt.Fprintln(os.Stderr, "O robô já está em execução; a janela existente foi trazida para frente.")
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("single instance lock unavailable")
	} else {
		defer resident.Close()
	}

	a := app.NewWithID(appID)
	var loop *eventloop.Loop
	win := gui.New(a, func(batchPath string) { loop.Start(batchPath) })
	if opts.batchPath != "" {
		win.SetBatch(opts.batchPath)
	}
	loop = eventloop.New(win, batchRunner(cfg, opts.verbose), log)
	tray.Install(a, cfg.StartHotkey, tray.Actions{
		Show:  win.Raise,
		Start: loop.HotkeyPressed,
	})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-raise:
				win.Raise()
			}
		}
	}()

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event loop stopped")
		}
	}()
	if err := hotkey.Listen(ctx, cfg.StartHotkey, log, loop.HotkeyPressed); err != nil {
		log.Warn().Err(err).Str("hotkey", cfg.StartHotkey).Msg("start hotkey disabled")
	}
	go func() {
		<-ctx.Done()
		fyne.Do(a.Quit)
	}()

	log.Info().Str("hotkey", cfg.StartHotkey).Msg("SEFIP robot ready")
	win.Run()
	cancel()
	return nil
}

// batchRunner runs one batch on the loop's worker with the bridge standing
// in for the operator.
func batchRunner(cfg *config.Config, verbose bool) eventloop.RunFunc {
	return func(ctx context.Context, batchPath string, bridge *messages.Bridge) (string, string, error) {
		res, err := session.Execute(ctx, session.Options{
			Config:    cfg,
			BatchPath: batchPath,
			Verbose:   verbose,
			Decider:   bridge,
			Confirm:   bridge,
			Progress:  bridge.Progress,
			OnLine:    bridge.Line,
		})
		if err != nil {
			return "", res.AuditPath, err
		}
		return res.Summary.String(), res.AuditPath, nil
	}
}
