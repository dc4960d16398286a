package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docprep/internal/config"
	"git.home.luguber.info/inful/docprep/internal/logging"
)

// Global carries process-wide state shared by subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing output; nil means stdout.
	Out io.Writer

	closer io.Closer
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// Close releases the log file, if one was opened.
func (g *Global) Close() {
	if g.closer != nil {
		_ = g.closer.Close()
		g.closer = nil
	}
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (.yaml or .toml)" default:"docprep.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Prepare  PrepareCmd  `cmd:"" default:"withargs" help:"Run extraction when the gate is open, check Breathe inputs and write conf.py"`
	Extract  ExtractCmd  `cmd:"" help:"Run only the gated Doxygen passes"`
	Generate GenerateCmd `cmd:"" help:"Write conf.py without running extraction"`
	Show     ShowCmd     `cmd:"" help:"Print the resolved Sphinx configuration"`
	Check    CheckCmd    `cmd:"" help:"Validate the configuration and check Breathe XML directories"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Watch    WatchCmd    `cmd:"" help:"Re-run preparation when headers or Doxyfiles change"`
	History  HistoryCmd  `cmd:"" help:"List recorded preparation runs"`
}

// AfterApply runs after flag parsing and installs a console logger. Commands
// that load a configuration call configureLogging to apply its logging section.
func (c *CLI) AfterApply(g *Global) error {
	level := logging.LevelFromEnv(slog.LevelInfo)
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger, closer, err := logging.New(logging.Options{Level: level})
	if err != nil {
		return err
	}
	g.Logger, g.closer = logger, closer
	slog.SetDefault(logger)
	return nil
}

// explicitConfig reports whether --config names something other than the default.
func (c *CLI) explicitConfig() bool {
	return c.Config != config.DefaultFile
}

// loadConfig reads --config. Without the flag a missing docprep.yaml means defaults.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(c.Config, c.explicitConfig())
}

// configureLogging rebuilds the logger from cfg. -v wins over
// DOCPREP_LOG_LEVEL, which wins over the file.
func (g *Global) configureLogging(c *CLI, cfg *config.Config) error {
	level, _ := logging.ParseLevel(string(cfg.Logging.Level))
	level = logging.LevelFromEnv(level)
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger, closer, err := logging.New(logging.Options{
		Level:      level,
		JSON:       cfg.Logging.Format == config.LogFormatJSON,
		File:       cfg.Resolve(cfg.Logging.File),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	g.Close()
	g.Logger, g.closer = logger, closer
	slog.SetDefault(logger)
	return nil
}

// setup loads the configuration and applies its logging section.
func setup(g *Global, c *CLI) (*config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := g.configureLogging(c, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
