package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/fnser"
	"github.com/roach88/fnser/internal/config"
	"github.com/roach88/fnser/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// IDs generates trace ids for JSON responses.
	IDs IDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// IDGenerator produces trace identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 trace ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewRootCommand creates the root command for the fnser CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{IDs: UUIDv7Generator{}})
}

// NewRootCommandWith creates the root command around opts, so tests can
// supply deterministic trace ids.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}

	cmd := &cobra.Command{
		Use:   "fnser",
		Short: "fnser - portable callable serialization",
		Long: `Serialize JavaScript callables to {params, body, type, hash} triples,
verify them and rebuild them in an isolated runtime.`,
		Version: ir.ToolVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .yml or .cue)")

	cmd.AddCommand(NewSerializeCommand(opts))
	cmd.AddCommand(NewDeserializeCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewConformanceCommand(opts))

	return cmd
}

// loadConfig returns the config named by --config, or the defaults.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}
	return cfg, nil
}

// logger writes to stderr: debug records with --verbose, warnings otherwise.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// codec builds a codec from cfg that logs through the command's logger.
func (o *RootOptions) codec(cmd *cobra.Command, cfg *config.Config) (*fnser.Codec, error) {
	c, err := cfg.Codec(fnser.WithLogger(o.logger(cmd)))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "building codec", err)
	}
	return c, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		TraceID:   o.IDs.Generate(),
	}
}

// storePath resolves the registry path: the flag, then the config, then a
// file under the user config directory.
func storePath(flag string, cfg *config.Config) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.Store != "" {
		return cfg.Store, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating default store: %w", err)
	}
	dir = filepath.Join(dir, "fnser")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating store directory: %w", err)
	}
	return filepath.Join(dir, "registry.db"), nil
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("reading %s: %v", path, err))
	}
	return data, nil
}
