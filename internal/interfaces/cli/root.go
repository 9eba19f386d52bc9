// Package cli implements the needsfine command line: offline scoring,
// schema migrations, term curation and batch recalculation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/width"

	"github.com/turtacn/NeedsFine/internal/app"
	"github.com/turtacn/NeedsFine/internal/application/analysis"
	"github.com/turtacn/NeedsFine/internal/application/curation"
	"github.com/turtacn/NeedsFine/internal/config"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
}

// Backend is the slice of the service graph the commands use.
type Backend interface {
	Analysis() analysis.Service
	Curation() curation.Service
	Close() error
}

// Migrator applies schema migrations.
type Migrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Close() error
}

// BackendFactory connects the services described by cfg.
type BackendFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error)

// MigratorFactory opens a migrator for cfg.
type MigratorFactory func(cfg *config.Config, logger logging.Logger) (Migrator, error)

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string

	openBackend  BackendFactory
	openMigrator MigratorFactory
}

// Backend connects the database-backed services.
func (c *CLIContext) Backend(ctx context.Context) (Backend, error) {
	return c.openBackend(ctx, c.Config, c.Logger)
}

// Migrator opens a schema migrator.
func (c *CLIContext) Migrator() (Migrator, error) {
	return c.openMigrator(c.Config, c.Logger)
}

// RootOption customizes NewRootCommand.
type RootOption func(*rootDeps)

type rootDeps struct {
	backend  BackendFactory
	migrator MigratorFactory
	config   func(path string) (*config.Config, error)
}

// WithBackend replaces the database-backed service factory.
func WithBackend(f BackendFactory) RootOption { return func(d *rootDeps) { d.backend = f } }

// WithMigrator replaces the migrator factory.
func WithMigrator(f MigratorFactory) RootOption { return func(d *rootDeps) { d.migrator = f } }

// WithConfigLoader replaces config discovery.
func WithConfigLoader(f func(path string) (*config.Config, error)) RootOption {
	return func(d *rootDeps) { d.config = f }
}

// NewRootCommand creates the root command with its global flags and
// subcommands.
func NewRootCommand(opts ...RootOption) *cobra.Command {
	deps := &rootDeps{backend: openAppBackend, migrator: openAppMigrator, config: initConfig}
	for _, o := range opts {
		o(deps)
	}
	ro := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "needsfine",
		Short: "NeedsFine restaurant review scoring",
		Long: "NeedsFine scores Korean restaurant reviews for quality and trust,\n" +
			"manages the learned lexicon and maintains the review store.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, ro, deps)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&ro.ConfigPath, "config", "c", "", "config file path (default: ./needsfine.yaml)")
	pf.StringVar(&ro.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&ro.OutputFormat, "output", "o", "text", "output format (text, json)")

	cmd.AddCommand(
		NewAnalyzeCmd(),
		NewMigrateCmd(),
		NewTermsCmd(),
		NewRecalcCmd(),
		NewVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, deps *rootDeps) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json":
	default:
		return errors.InvalidParam(fmt.Sprintf("unsupported output format %q", opts.OutputFormat))
	}

	cfg, err := deps.config(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		openBackend:  deps.backend,
		openMigrator: deps.migrator,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads path, or the first config found on the search path, or
// the environment alone.
func initConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	searchPaths := []string{"./needsfine.yaml", "./configs/config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".needsfine", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/needsfine/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

// initLogger logs to stderr so stdout stays machine readable.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:            opts.LogLevel,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

type appBackend struct{ deps *app.Deps }

func (b appBackend) Analysis() analysis.Service { return b.deps.AnalysisService() }
func (b appBackend) Curation() curation.Service { return b.deps.CurationService() }
func (b appBackend) Close() error               { return b.deps.Close() }

func openAppBackend(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error) {
	deps, err := app.Open(ctx, cfg, logger, app.Options{Source: "needsfine-cli", Messaging: true})
	if err != nil {
		return nil, err
	}
	return appBackend{deps: deps}, nil
}

func openAppMigrator(cfg *config.Config, logger logging.Logger) (Migrator, error) {
	return app.NewMigrator(cfg.Database, logger)
}

// GetCLIContext extracts CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeValidation, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeValidation, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult writes data as JSON, or through text when the text format
// is selected.
func PrintResult(cmd *cobra.Command, data interface{}, text func() string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == "json" || text == nil {
		return printJSON(cmd, data)
	}
	fmt.Fprint(cmd.OutOrStdout(), text())
	return nil
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as an aligned table. Wide runes such
// as Hangul count as two columns.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = displayWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := displayWidth(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			sb.WriteString(padRight(val, widths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func padRight(s string, w int) string {
	if n := displayWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
