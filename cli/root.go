// Package cli wires the index operations to cobra commands.
package cli

import (
	"fmt"
	"io"

	"github.com/btree-query-bench/lineindex/dbms/index/indexfile"
	"github.com/btree-query-bench/lineindex/dbms/lineindex"
	"github.com/btree-query-bench/lineindex/logger"
	"github.com/btree-query-bench/lineindex/settings"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type app struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg settings.Config
	log *zap.Logger
	eng *lineindex.Engine
}

// NewRootCommand returns the lineindex command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lineindex",
		Short:         "B+ tree index over the lines of a data file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	a.bindFlags(root.PersistentFlags())

	root.AddCommand(
		a.createCommand(),
		a.findCommand(),
		a.insertCommand(),
		a.listCommand(),
		a.statsCommand(),
		a.dotCommand(),
		a.seedCommand(),
		a.benchCommand(),
	)
	return root
}

func (a *app) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&a.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	fs.BoolVar(&a.noColor, "no-color", false, "disable colored output")
}

// Execute runs the command line and prints a fatal error, if any, to stderr.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil {
		color.New(color.FgRed).Fprintf(root.ErrOrStderr(), "error: %v\n", err)
	}
	return err
}

func (a *app) setup() error {
	if a.noColor {
		color.NoColor = true
	}
	cfg, err := settings.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logger.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	comp, err := indexfile.ParseCompression(cfg.Index.Compression)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.eng = lineindex.New(lineindex.Options{
		Logger:      log,
		Compression: comp,
		Capacity:    cfg.Index.Capacity,
	})
	return nil
}

// ─── Output ───────────────────────────────────────────────────────────────────

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

func printRecord(w io.Writer, r lineindex.Record) {
	fmt.Fprintf(w, "At %d, record: %s\n", r.Offset, r.Text)
}

func printOK(w io.Writer, format string, args ...interface{}) {
	okColor.Fprintf(w, format+"\n", args...)
}

func printWarn(w io.Writer, format string, args ...interface{}) {
	warnColor.Fprintf(w, format+"\n", args...)
}
