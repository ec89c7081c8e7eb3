package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vandalt/evince-synctex/internal/bridge"
	"github.com/vandalt/evince-synctex/internal/build"
	"github.com/vandalt/evince-synctex/internal/config"
	"github.com/vandalt/evince-synctex/internal/launcher"
	"github.com/vandalt/evince-synctex/internal/session"
	"github.com/vandalt/evince-synctex/internal/synctex"
	"github.com/vandalt/evince-synctex/internal/template"
	"github.com/vandalt/evince-synctex/internal/viewer"
)

var (
	flagForward      int
	flagSource       string
	flagWatch        bool
	flagTimeout      time.Duration
	flagPollInterval time.Duration
	flagColumn       string
	flagLogFile      string
)

var rootCmd = &cobra.Command{
	Use:   "evince-synctex [flags] PDF_FILE [EDITOR_COMMAND]",
	Short: "SyncTeX coordination between Evince and a text editor",
	Long: `Coordinate bidirectional SyncTeX navigation between Evince and a
text editor.

Without --forward, the coordinator makes sure Evince is showing PDF_FILE,
then waits for backward-search clicks (Ctrl+click in the PDF) and runs
EDITOR_COMMAND for each one, with these placeholders substituted:

  %f   absolute source file path
  %l   1-based line number
  %c   1-based column (see --column-default)
  %%   literal percent sign

With --forward LINE, the coordinator instead asks the running Evince to
highlight the rendered position of LINE in the TeX file next to PDF_FILE,
and exits. No editor is launched, so EDITOR_COMMAND must be omitted.

With --source FILE, a continuous build of FILE is started first (latexmk
-pvc by default, or the built-in watcher with --watch), so the PDF exists
by the time the viewer opens it.

Examples:
  evince-synctex paper.pdf 'vim %f +%l'
  evince-synctex --forward 128 paper.pdf
  evince-synctex --source paper.tex paper.pdf 'code --goto %f:%l'`,
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().IntVarP(&flagForward, "forward", "f", 0, "forward search: scroll the viewer to this source line")
	rootCmd.Flags().StringVarP(&flagSource, "source", "s", "", "TeX source file to build continuously")
	rootCmd.Flags().BoolVar(&flagWatch, "watch", false, "rebuild with the built-in file watcher instead of the build tool's continuous mode")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "how long to wait for a launched viewer to register (default 10s)")
	rootCmd.Flags().DurationVar(&flagPollInterval, "poll-interval", 0, "how often to poll the viewer registry while waiting (default 500ms)")
	rootCmd.Flags().StringVar(&flagColumn, "column-default", "", "value substituted for %c when the viewer supplies no column (default: treat as an error)")
	rootCmd.Flags().StringVar(&flagLogFile, "log-file", "", "append logs to this rotating file instead of stderr")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	pdf := args[0]
	forward := cmd.Flags().Changed("forward")
	if forward && len(args) > 1 {
		return fmt.Errorf("--forward never launches an editor; drop the EDITOR_COMMAND argument")
	}

	editorCommand := cfg.Editor
	if len(args) > 1 {
		editorCommand = args[1]
	}

	logWriter := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		logWriter = &lumberjack.Logger{Filename: cfg.LogFile, MaxSize: 5, MaxBackups: 2}
	}

	if !forward && editorCommand == "" {
		return fmt.Errorf("no editor command: pass EDITOR_COMMAND or set editor in the config file")
	}

	// Parse the editor template before anything is spawned; a broken
	// template is a configuration bug and must not leave processes behind.
	var editor *template.Template
	if !forward {
		policy := template.ColumnRequired
		if cfg.ColumnDefault != "" {
			policy = template.ColumnDefault
		}
		editor, err = template.New(editorCommand, policy, cfg.ColumnDefault)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	launch := launcher.ExecLauncher{}

	// The build starts before the viewer session is ensured, so the PDF
	// exists by the time Evince opens it. A failed build start is logged,
	// not fatal: a stale PDF is still viewable.
	if flagSource != "" {
		sup, err := buildSupervisor(cfg, logWriter, launch)
		if err != nil {
			return err
		}
		if _, err := sup.Start(ctx); err != nil {
			log.New(logWriter, "[build] ", log.LstdFlags).Printf("Continuous build unavailable: %v", err)
		} else {
			defer func() {
				stop()
				sup.Wait()
			}()
		}
	}

	transport, err := viewer.NewDBusTransport()
	if err != nil {
		return err
	}
	defer transport.Close()

	uri, err := viewer.FileURI(pdf)
	if err != nil {
		return err
	}

	viewerArgv, err := shlex.Split(cfg.Viewer)
	if err != nil || len(viewerArgv) == 0 {
		return fmt.Errorf("bad viewer command %q", cfg.Viewer)
	}
	mgr := session.NewManager(uri, transport, launch, &session.Config{
		ViewerCommand: viewerArgv,
		PollInterval:  cfg.PollInterval,
		Timeout:       cfg.Timeout,
		Logger:        log.New(logWriter, "[session] ", log.LstdFlags),
	})

	br := bridge.New(mgr, transport, editor, launch, &bridge.Config{
		Logger: log.New(logWriter, "[bridge] ", log.LstdFlags),
	})

	if forward {
		return maskInterrupt(br.Forward(ctx, synctex.Location{File: texForPDF(pdf), Line: flagForward, Column: 1}))
	}
	return maskInterrupt(br.Listen(ctx))
}

// maskInterrupt turns a user interrupt into a normal termination, whether it
// arrived while polling for registration, during a forward call, or while
// listening. Detached children (viewer, editor, build) stay alive; they are
// independent processes.
func maskInterrupt(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// applyFlags lets explicitly-set flags win over the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if cmd.Flags().Changed("poll-interval") {
		cfg.PollInterval = flagPollInterval
	}
	if cmd.Flags().Changed("column-default") {
		cfg.ColumnDefault = flagColumn
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = flagLogFile
	}
	if cmd.Flags().Changed("watch") {
		cfg.Watch = flagWatch
	}
}

func buildSupervisor(cfg *config.Config, logWriter io.Writer, launch launcher.Launcher) (*build.Supervisor, error) {
	command, err := shlex.Split(cfg.BuildCommand)
	if err != nil || len(command) == 0 {
		return nil, fmt.Errorf("bad build command %q", cfg.BuildCommand)
	}
	once, err := shlex.Split(cfg.BuildOnceCommand)
	if err != nil || len(once) == 0 {
		return nil, fmt.Errorf("bad build_once command %q", cfg.BuildOnceCommand)
	}
	return build.NewSupervisor(flagSource, launch, &build.Config{
		Command:        command,
		Watch:          cfg.Watch,
		OneShotCommand: once,
		Logger:         log.New(logWriter, "[build] ", log.LstdFlags),
	}), nil
}

// texForPDF derives the TeX source path next to the PDF, the convention the
// SyncTeX mapping is built around.
func texForPDF(pdf string) string {
	abs, err := filepath.Abs(pdf)
	if err != nil {
		abs = pdf
	}
	return strings.TrimSuffix(abs, filepath.Ext(abs)) + ".tex"
}
