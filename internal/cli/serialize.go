package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/fnser"
	"github.com/roach88/fnser/internal/config"
	"github.com/roach88/fnser/internal/store"
)

// SerializeOptions holds flags for the serialize command.
type SerializeOptions struct {
	*RootOptions
	Hash       bool
	Comments   bool
	Whitespace bool
	SourceOnly bool
	Output     string
	DB         string
	Store      bool
	Name       string
	Jobs       int
}

// SerializedFile is the outcome for one input file.
type SerializedFile struct {
	File   string       `json:"file"`
	Triple fnser.Triple `json:"triple"`
	CID    string       `json:"cid,omitempty"`

	encoded []byte
}

// SerializeResult lists serialized files in argument order.
type SerializeResult struct {
	Files []SerializedFile `json:"files"`
}

func (r SerializeResult) String() string {
	var b strings.Builder
	for i, f := range r.Files {
		if i > 0 {
			b.WriteByte('\n')
		}
		if len(r.Files) > 1 {
			fmt.Fprintf(&b, "%s: ", f.File)
		}
		b.Write(f.encoded)
		if f.CID != "" {
			fmt.Fprintf(&b, "\ncid: %s", f.CID)
		}
	}
	return b.String()
}

// NewSerializeCommand creates the serialize command.
func NewSerializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SerializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serialize <file.js>...",
		Short: "Serialize callables to triples",
		Long: `Serialize evaluates each file as a function expression and prints its
{params, body, type} triple. Use "-" to read from stdin.

Flags left unset fall back to the config file's serialize section.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSerialize(cmd, opts, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolVar(&opts.Hash, "hash", false, "attach a hash")
	cmd.Flags().BoolVar(&opts.Comments, "comments", false, "keep comments")
	cmd.Flags().BoolVar(&opts.Whitespace, "whitespace", false, "keep whitespace")
	cmd.Flags().BoolVar(&opts.SourceOnly, "source-only", false, "classify the source text without evaluating it")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the triple to this file (single input only)")
	cmd.Flags().BoolVar(&opts.Store, "store", false, "put the triples in the registry")
	cmd.Flags().StringVar(&opts.DB, "db", "", "registry path (implies --store)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "tag the stored triple with this name (single input only)")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 4, "files serialized concurrently")

	return cmd
}

func runSerialize(cmd *cobra.Command, opts *SerializeOptions, args []string) error {
	formatter := opts.formatter(cmd)

	if len(args) > 1 && (opts.Output != "" || opts.Name != "") {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric,
			NewExitError(ExitCommandError, "--output and --name take a single input file"))
	}
	if opts.DB != "" || opts.Name != "" {
		opts.Store = true
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	codec, err := opts.codec(cmd, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	sopts := cfg.SerializeOptions()
	flags := cmd.Flags()
	if flags.Changed("hash") {
		sopts.Hash = opts.Hash
	}
	if flags.Changed("comments") {
		sopts.Comments = opts.Comments
	}
	if flags.Changed("whitespace") {
		sopts.Whitespace = opts.Whitespace
	}

	// Stdin can be read once; read it before fanning out.
	sources := make([]string, len(args))
	for i, path := range args {
		data, err := readInput(cmd, path)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err)
		}
		sources[i] = string(data)
	}

	files := make([]SerializedFile, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(opts.Jobs, 1))
	for i, path := range args {
		g.Go(func() error {
			var triple fnser.Triple
			var err error
			if opts.SourceOnly {
				triple, err = codec.SerializeSource(ctx, sources[i], sopts)
			} else {
				var fn *fnser.Func
				fn, err = fnser.Compile(sources[i])
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				triple, err = codec.Serialize(ctx, fn, sopts)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			encoded, err := fnser.JSONOrder.Encode(triple)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			files[i] = SerializedFile{File: path, Triple: triple, encoded: encoded}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}
	for _, f := range files {
		formatter.VerboseLog("serialized %s as %s", f.File, f.Triple.Type)
	}

	if opts.Store {
		if err := storeSerialized(cmd, opts, cfg, files); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, append(files[0].encoded, '\n'), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed,
				fmt.Errorf("writing %s: %w", opts.Output, err))
		}
		formatter.VerboseLog("wrote %s", opts.Output)
	}

	return formatter.Success(SerializeResult{Files: files})
}

func storeSerialized(cmd *cobra.Command, opts *SerializeOptions, cfg *config.Config, files []SerializedFile) error {
	st, err := openStore(opts.DB, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	for i := range files {
		entry, err := st.Put(ctx, files[i].Triple)
		if err != nil {
			return fmt.Errorf("storing %s: %w", files[i].File, err)
		}
		files[i].CID = entry.CID.String()

		if opts.Name != "" {
			if err := st.Tag(ctx, opts.Name, entry.CID); err != nil {
				return fmt.Errorf("tagging %s: %w", opts.Name, err)
			}
		}
	}
	return nil
}

func openStore(flag string, cfg *config.Config) (*store.Store, error) {
	path, err := storePath(flag, cfg)
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}
