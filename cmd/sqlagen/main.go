package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/sqlagen"
	"github.com/tordrt/sqlagen/internal/config"
)

type cliFlags struct {
	generator     string
	outfile       string
	flavor        string
	configFile    string
	schemas       string
	tables        string
	exclude       string
	options       string
	version       bool
	noViews       bool
	noIndexes     bool
	noConstraints bool
	noComments    bool
	verbose       bool
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}
	cmd := &cobra.Command{
		Use:   "sqlagen [url]",
		Short: "Generate SQLAlchemy model code from an existing database",
		Long: `sqlagen reflects a PostgreSQL, MySQL or SQLite schema and writes Python source
declaring it as SQLAlchemy tables, declarative classes, dataclasses or SQLModel models.

The database URL may also come from the config file or the SQLAGEN_URL variable.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.generator, "generator", sqlagen.DefaultGenerator,
		"Generator style: "+strings.Join(sqlagen.Generators(), ", "))
	flags.StringVarP(&f.outfile, "outfile", "o", "", "File to write output to (default: stdout)")
	flags.StringVar(&f.flavor, "flavor", "modern", "SQLAlchemy flavor: modern (2.x) or legacy (1.4)")
	flags.StringVarP(&f.configFile, "config", "c", "", "YAML config file")
	flags.StringVar(&f.schemas, "schemas", "", "Schemas to load (comma-separated, default: the default schema)")
	flags.StringVarP(&f.tables, "tables", "t", "", "Tables to process (comma-separated, default: all)")
	flags.StringVar(&f.exclude, "exclude-tables", "", "Tables to leave out (comma-separated)")
	flags.StringVar(&f.options, "options", "", "Generator options (comma-separated): use_inflect, nobidi, selfref=children")
	flags.BoolVar(&f.version, "version", false, "Print the version number and exit")
	flags.BoolVar(&f.noViews, "noviews", false, "Ignore views")
	flags.BoolVar(&f.noIndexes, "noindexes", false, "Ignore indexes")
	flags.BoolVar(&f.noConstraints, "noconstraints", false, "Ignore constraints other than the primary key")
	flags.BoolVar(&f.noComments, "nocomments", false, "Ignore table and column comments")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Log debug events to stderr")

	return cmd
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cmd *cobra.Command, f *cliFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("generator") {
		cfg.Generator = f.generator
	}
	if changed("outfile") {
		cfg.Outfile = f.outfile
	}
	if changed("flavor") {
		cfg.Flavor = f.flavor
	}
	if changed("schemas") {
		cfg.Schemas = splitList(f.schemas)
	}
	if changed("tables") {
		cfg.Tables = splitList(f.tables)
	}
	if changed("exclude-tables") {
		cfg.ExcludeTables = splitList(f.exclude)
	}
	if changed("options") {
		cfg.Options = splitList(f.options)
	}
	cfg.NoViews = cfg.NoViews || f.noViews
	cfg.NoIndexes = cfg.NoIndexes || f.noIndexes
	cfg.NoConstraints = cfg.NoConstraints || f.noConstraints
	cfg.NoComments = cfg.NoComments || f.noComments
	if f.verbose {
		cfg.LogLevel = "debug"
	}
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func run(cmd *cobra.Command, f *cliFlags, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if f.version {
		fmt.Fprintln(stdout, "sqlagen", sqlagen.Version)
		return nil
	}

	cfg, err := config.Load(config.LoadOptions{File: f.configFile})
	if err != nil {
		return err
	}
	applyFlags(cmd, f, cfg)
	if len(args) > 0 {
		cfg.URL = args[0]
	}
	if cfg.URL == "" {
		return fmt.Errorf("database URL is required (argument, config file or %sURL)", config.EnvPrefix)
	}

	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	flavor, err := sqlagen.ParseFlavor(cfg.Flavor)
	if err != nil {
		return err
	}
	genOpts := &sqlagen.GenerateOptions{
		Generator: cfg.Generator,
		Flavor:    flavor,
		Logger:    logger,
	}
	if err := genOpts.ApplyOptionList(cfg.Options); err != nil {
		return err
	}

	opts := &sqlagen.Options{
		Schemas:       cfg.Schemas,
		Tables:        cfg.Tables,
		ExcludeTables: cfg.ExcludeTables,
		NoViews:       cfg.NoViews,
		NoIndexes:     cfg.NoIndexes,
		NoConstraints: cfg.NoConstraints,
		NoComments:    cfg.NoComments,
		Logger:        logger,
	}

	res, err := sqlagen.ExtractAndGenerate(cmd.Context(), cfg.URL, opts, genOpts)
	if err != nil {
		return err
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(stderr, "warning: %s\n", d)
	}

	// The file is only created once generation succeeded.
	if cfg.Outfile != "" {
		if err := os.WriteFile(cfg.Outfile, []byte(res.Source), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	_, err = io.WriteString(stdout, res.Source)
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
