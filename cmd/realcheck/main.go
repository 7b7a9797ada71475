// Command realcheck asks a remote classifier whether an image or video is
// real or fake. Without arguments it starts the terminal UI; the check
// sub-command runs one upload without a terminal and keys prints the
// effective keybindings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jask/realcheck/internal/config"
	"github.com/jask/realcheck/internal/inference"
	"github.com/jask/realcheck/internal/logging"
	"github.com/jask/realcheck/internal/media"
	"github.com/jask/realcheck/internal/observe"
	"github.com/jask/realcheck/internal/stage"
	"github.com/jask/realcheck/internal/tui"
	"github.com/jask/realcheck/internal/upload"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "check":
			return runCheck(args[1:], stdout, stderr)
		case "keys":
			return runKeys(args[1:], stdout, stderr)
		}
	}
	return runTUI(args, stderr)
}

// app is everything both entry points share.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	selector media.Selector
	runner   *upload.Runner
	close    func() error
}

func setup(configPath string, logOpts func(*logging.Options)) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{Path: cfg.Log.Path, Level: cfg.Log.Level}
	if logOpts != nil {
		logOpts(&opts)
	}
	log, closeLog, err := logging.New(opts)
	if err != nil {
		return nil, err
	}

	rules, err := cfg.Ruleset()
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	client, err := inference.New(inference.Config{
		BaseURL:   cfg.Inference.BaseURL,
		ImagePath: cfg.Inference.ImagePath,
		VideoPath: cfg.Inference.VideoPath,
		Timeout:   cfg.Inference.Timeout,
	}, inference.WithMetrics(observe.DefaultMetrics()))
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		selector: media.NewSelector(rules, cfg.Mode()),
		runner: &upload.Runner{
			Stager:    stage.NewStager(cfg.Staging.Timeout, cfg.UI.ThumbnailWidth),
			Submitter: client,
			Metrics:   observe.DefaultMetrics(),
		},
		close: closeLog,
	}, nil
}

func runTUI(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("realcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to the TOML configuration file")
	startDir := fs.String("dir", "", "directory the file picker opens in")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: realcheck [-config PATH] [-dir DIR] [FILE]\n       realcheck check [-config PATH] [-mode image|video] [-output text|json|yaml] FILE\n       realcheck keys [-config PATH]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, shutdown, err := initMetrics(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "realcheck: metrics: %v\n", err)
		return 1
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := setup(*configPath, nil)
	if err != nil {
		fmt.Fprintf(stderr, "realcheck: %v\n", err)
		return 1
	}
	defer func() { _ = a.close() }()
	ctx = a.log.WithContext(ctx)

	keys := tui.NewKeyRegistry()
	var status string
	overrides, err := config.LoadKeybindings(a.cfg.KeybindingsPath())
	if err == nil {
		err = keys.ApplyKeybindingConfig(overrides)
	}
	if err != nil {
		a.log.Warn().Err(err).Msg("keybindings ignored")
		status = "keybindings ignored: " + err.Error()
	}

	opts := tui.Options{Keys: keys, StartDir: *startDir, Status: status}
	if fs.NArg() == 1 {
		opts.Initial = media.NewCandidate(fs.Arg(0))
	}

	a.log.Info().
		Str("version", version).
		Str("config", a.cfg.Path).
		Str("base_url", a.cfg.Inference.BaseURL).
		Str("mode", a.selector.Mode().String()).
		Msg("realcheck starting")

	model := tui.New(ctx, a.runner, a.selector, opts)

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: metricsMux(handler), ReadHeaderTimeout: 5 * time.Second}
	if a.cfg.Metrics.Listen != "" {
		g.Go(func() error {
			a.log.Info().Str("addr", srv.Addr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
		final, err := p.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("tui: %w", err)
		}
		if m, ok := final.(*tui.App); ok {
			releaseStaged(m.State())
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.log.Error().Err(err).Msg("realcheck stopped")
		fmt.Fprintf(stderr, "realcheck: %v\n", err)
		return 1
	}
	return 0
}

func initMetrics(ctx context.Context) (http.Handler, func(context.Context) error, error) {
	return observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "realcheck", ServiceVersion: version})
}

func metricsMux(h http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	return mux
}

func releaseStaged(s upload.State) {
	if s.Cycle.Staged != nil {
		_ = s.Cycle.Staged.Release()
	}
}
