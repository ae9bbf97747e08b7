package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/baysound/sf-events/internal/config"
	"github.com/baysound/sf-events/internal/logger"
	"github.com/baysound/sf-events/internal/scraper"
	"github.com/baysound/sf-events/internal/venue"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNewEvents = 2
)

const lockFile = "sf-events.lock"

// ErrLocked is returned when another process holds the data directory.
var ErrLocked = errors.New("data directory is locked by another sf-events process")

// exitCodeError carries a non-error exit status out of RunE.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// fetcherFactory builds the page fetcher; tests swap it for a static one.
var fetcherFactory = func(cfg *config.Config) scraper.Fetcher {
	return scraper.New(cfg.FetchTimeout(), cfg.Fetch.UserAgent)
}

type rootFlags struct {
	configPath string
	venuesFile string
	dataDir    string
	workers    int
	radius     int
	verbose    bool
}

// app is the per-invocation wiring shared by subcommands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *venue.Registry
	stdout   io.Writer
	stderr   io.Writer
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "sf-events",
		Short: "Extract upcoming shows from San Francisco venue calendars",
		Long: `sf-events fetches the calendar pages of San Francisco music venues and
extracts likely (artist, date) pairs from their text.

Each date found on a page anchors a window of surrounding text; the first
line in that window that looks like an artist name becomes a candidate event.
Results are deduplicated, stored as run history, and can be reported as new
since the previous run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default ~/.config/sf-events/config.toml)")
	pf.StringVar(&flags.venuesFile, "venues", "", "Venue registry YAML file (default: built-in San Francisco list)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "Data directory for run history (default ~/.local/share/sf-events)")
	pf.IntVar(&flags.workers, "workers", 0, "Venues processed concurrently")
	pf.IntVar(&flags.radius, "radius", 0, "Characters of context on each side of a date")
	pf.BoolVar(&flags.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newExtractCmd(flags),
		newVenuesCmd(flags),
		newHistoryCmd(flags),
		newServeCmd(flags),
		newConfigCmd(flags),
	)

	return cmd
}

// loadApp reads config, applies flag overrides and loads the venue registry.
func loadApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	pf := cmd.Flags()
	if pf.Changed("venues") {
		cfg.VenuesFile = flags.venuesFile
	}
	if pf.Changed("data-dir") {
		cfg.DataDir = flags.dataDir
	}
	if pf.Changed("workers") {
		cfg.Extract.Workers = flags.workers
	}
	if pf.Changed("radius") {
		cfg.Extract.WindowRadius = flags.radius
	}
	if flags.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)

	registry, err := venue.Load(cfg.VenuesFile)
	if err != nil {
		return nil, fmt.Errorf("loading venues: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
	}, nil
}

// lockDataDir takes the data directory lock without blocking.
func lockDataDir(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	lock := flock.New(filepath.Join(dataDir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock, nil
}

// Run executes the CLI with args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exit *exitCodeError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitError
}

// Execute runs the CLI
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}
