package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"coursekit/internal/config"
	"coursekit/internal/logging"
	"coursekit/internal/structures"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFile   string
	logFormat string
	timezone  string
	noColor   bool

	cfg  structures.Config
	logs *logging.Logging
	loc  *time.Location
)

var rootCmd = &cobra.Command{
	Use:   "coursekit",
	Short: "Course administration tools: feedback messages, answer reports and submission tags",
	Long: `Coursekit bundles the scripts used to run a course on GitHub Classroom style repos:
it renders feedback messages from the marking sheet, builds per-student answer reports
from form exports, and finds submission tags across student repositories.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logs != nil {
			return logs.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fatalf("Error: %v", err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warning, error, critical")
	pf.StringVar(&logFile, "log-file", "", "Also log to this rotating file")
	pf.StringVar(&logFormat, "log-format", "", "Log layout: full, simple or bare")
	pf.StringVar(&timezone, "timezone", "", "Time zone for timestamps (default Australia/Melbourne)")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// setup loads the config and builds the process-wide log sink; flags win over config.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfg, err = config.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	override := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	override("log-level", &cfg.LogLevel, logLevel)
	override("log-file", &cfg.LogFile, logFile)
	override("log-format", &cfg.LogFormat, logFormat)
	override("timezone", &cfg.Timezone, timezone)

	if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	opts := logging.DefaultOptions()
	opts.Level = level
	opts.Location = loc
	opts.Layout = logging.Layout(cfg.LogFormat)
	opts.File = cfg.LogFile
	opts.NoColor = noColor
	if logs, err = logging.Setup(opts); err != nil {
		return err
	}

	// libraries that use the standard logger only show up at warning and above
	log.SetFlags(0)
	log.SetOutput(logs.Bridge(zerolog.InfoLevel))
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
