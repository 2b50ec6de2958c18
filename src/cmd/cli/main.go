package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sefip-robot/src/audit"
	"sefip-robot/src/batch"
	"sefip-robot/src/config"
	"sefip-robot/src/history"
	"sefip-robot/src/messages"
	"sefip-robot/src/runtimeinit"
	"sefip-robot/src/sefip"
	"sefip-robot/src/session"
	"sefip-robot/src/singleinstance"
)

type cliOptions struct {
	configPath string
	imagesDir  string
	verbose    bool

	batchPath string
	limit     int

	in  io.Reader
	out io.Writer
	// execute is session.Execute outside tests.
	execute func(ctx context.Context, opts session.Options) (session.Result, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := &cliOptions{in: os.Stdin, out: os.Stdout, execute: session.Execute}
	cmd := newRootCmd(opts)
	cmd.SetArgs(os.Args[1:])
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sefip-cli",
		Short:         "Automação SEFIP sem janela: lotes, modelo CSV e verificação",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a TOML configuration file")
	cmd.PersistentFlags().StringVar(&opts.imagesDir, "images-dir", "", "Directory with the template images")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	cmd.AddCommand(newRunCmd(opts), newTemplateCmd(opts), newCheckCmd(opts), newHistoryCmd(opts))
	return cmd
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a batch CSV, asking on stdin when a step needs a decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			resident, err := singleinstance.Claim(cmd.Context(), singleinstance.Port(), zerolog.Nop(), nil)
			if err != nil {
				return err
			}
			defer resident.Close()
			return runBatch(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.batchPath, "batch", "", "Batch CSV (ano,mes,valor)")
	_ = cmd.MarkFlagRequired("batch")
	return cmd
}

func newTemplateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "template [FILE]",
		Short: "Write an example batch CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := batch.DefaultTemplateName
			if len(args) == 1 {
				path = args[0]
			}
			if err := batch.CreateTemplate(path); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Arquivo modelo criado: %s\n", path)
			return nil
		},
	}
}

func newCheckCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and that every template image exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return check(cfg, opts.out)
		},
	}
}

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent processed periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return listHistory(cfg, opts.limit, opts.out)
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Number of rows to show")
	return cmd
}

func loadConfig(opts *cliOptions) (*config.Config, error) {
	cfg, _, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			ConfigPath:        opts.configPath,
			ImagesDirOverride: opts.imagesDir,
		},
		SetupLogging: func(*config.Config) zerolog.Logger {
			if !opts.verbose {
				return zerolog.Nop()
			}
			return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).With().Timestamp().Logger()
		},
		InitClipboard: true,
	})
	return cfg, err
}

func check(cfg *config.Config, out io.Writer) error {
	fmt.Fprintf(out, "Imagens: %s\n", cfg.ImagesDir)
	fmt.Fprintf(out, "Logs:    %s\n", cfg.LogDir)
	fmt.Fprintf(out, "Destino: %s\n", sefip.TargetPath(cfg.TargetBaseDir, "AAAA", "MM", cfg.TargetFileName))
	if singleinstance.Ping(context.Background(), singleinstance.Port()) {
		fmt.Fprintln(out, "Robô em execução nesta máquina")
	}

	missing := sefip.MissingAnchors(cfg.ImagesDir)
	for _, name := range missing {
		fmt.Fprintf(out, "✗ imagem ausente: %s\n", name)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%d de %d imagens ausentes", len(missing), len(sefip.Anchors()))
	}
	fmt.Fprintf(out, "✓ %d imagens encontradas\n", len(sefip.Anchors()))
	return nil
}

func listHistory(cfg *config.Config, limit int, out io.Writer) error {
	if cfg.HistoryDB == "" {
		return errors.New("histórico desativado: defina HISTORY_DB")
	}
	store, err := history.Open(cfg.HistoryDB, "")
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(audit.Header, "\t"))
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Start.Format(audit.TimeLayout), e.Period, e.Amount, e.End.Format(audit.TimeLayout), e.Status)
	}
	return tw.Flush()
}

// runBatch runs the worker and the terminal presenter side by side; the
// presenter answers the worker's prompts from stdin.
func runBatch(ctx context.Context, cfg *config.Config, opts *cliOptions) error {
	bridge := messages.NewBridge(64)
	p := newPrompter(opts.in, opts.out)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := opts.execute(gctx, session.Options{
			Config:    cfg,
			BatchPath: opts.batchPath,
			Verbose:   opts.verbose,
			Decider:   bridge,
			Confirm:   bridge,
			Progress:  bridge.Progress,
			OnLine:    bridge.Line,
		})
		summary := ""
		if err == nil {
			summary = res.Summary.String()
		}
		bridge.Finish(summary, res.AuditPath, err)
		return err
	})
	g.Go(func() error {
		defer bridge.Stop()
		return present(gctx, bridge, p, opts.out)
	})
	return g.Wait()
}

// present prints the worker's messages and answers its prompts until the
// run finishes.
func present(ctx context.Context, bridge *messages.Bridge, p *prompter, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-bridge.Messages():
			switch msg := m.(type) {
			case messages.LogLine:
				fmt.Fprintln(out, msg.Text)
			case messages.Progress:
				if msg.Percent > 0 {
					fmt.Fprintf(out, "[%3.0f%%] %s\n", msg.Percent, msg.Label)
				}
			case messages.DecisionNeeded:
				msg.Reply <- p.decide(ctx, msg.Anchor)
			case messages.ConfirmNeeded:
				msg.Reply <- p.confirm(ctx, msg.Title, msg.Body)
			case messages.RunFinished:
				if msg.Err == nil {
					fmt.Fprintf(out, "\nProcessamento finalizado!\n%s\n", msg.Summary)
					if msg.AuditPath != "" {
						fmt.Fprintf(out, "Log CSV: %s\n", msg.AuditPath)
					}
				}
				return nil
			}
		}
	}
}
