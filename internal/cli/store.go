package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"

	"github.com/roach88/fnser"
	"github.com/roach88/fnser/internal/store"
)

// StoreOptions holds flags shared by the store subcommands.
type StoreOptions struct {
	*RootOptions
	DB   string
	Name string
}

// StoredTriple is a registry entry as printed by the store commands.
type StoredTriple struct {
	CID    string       `json:"cid"`
	Seq    int64        `json:"seq"`
	Names  []string     `json:"names,omitempty"`
	Triple fnser.Triple `json:"triple"`
}

func (s StoredTriple) String() string {
	line := fmt.Sprintf("%d %s %s(%s)", s.Seq, s.CID, s.Triple.Type, strings.Join(s.Triple.Params, ", "))
	if len(s.Names) > 0 {
		line += " [" + strings.Join(s.Names, ", ") + "]"
	}
	return line
}

// StoreList is the output of store list.
type StoreList struct {
	Entries []StoredTriple `json:"entries"`
}

func (l StoreList) String() string {
	if len(l.Entries) == 0 {
		return "(empty)"
	}
	lines := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

// NewStoreCommand creates the store command and its subcommands.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the triple registry",
		Long: `The registry is a SQLite database of triples keyed by content
identifier (CIDv1 of the canonical triple), with optional names.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "registry path")

	put := &cobra.Command{
		Use:   "put <triple.json>...",
		Short: "Store triples",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStorePut(cmd, opts, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	put.Flags().StringVar(&opts.Name, "name", "", "tag the stored triple (single input only)")

	get := &cobra.Command{
		Use:   "get <cid|name>",
		Short: "Print a stored triple",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreGet(cmd, opts, args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	tag := &cobra.Command{
		Use:   "tag <name> <cid>",
		Short: "Name a stored triple",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreTag(cmd, opts, args[0], args[1])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored triples in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreList(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(put, get, tag, list)
	return cmd
}

// withStore opens the registry, reporting failures through formatter.
func withStore(cmd *cobra.Command, opts *StoreOptions, formatter *OutputFormatter, fn func(*store.Store) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	st, err := openStore(opts.DB, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	defer st.Close()
	return fn(st)
}

func runStorePut(cmd *cobra.Command, opts *StoreOptions, args []string) error {
	formatter := opts.formatter(cmd)
	if len(args) > 1 && opts.Name != "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric,
			NewExitError(ExitCommandError, "--name takes a single input file"))
	}

	return withStore(cmd, opts, formatter, func(st *store.Store) error {
		ctx := cmd.Context()
		out := StoreList{Entries: make([]StoredTriple, 0, len(args))}
		for _, path := range args {
			rec, err := loadRecord(cmd, path, "", nil)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err)
			}
			t, err := fnser.TripleFromRecord(rec)
			if err != nil {
				return formatter.Fail(ExitFailure, ErrCodeDecode, fmt.Errorf("%s: %w", path, err))
			}
			entry, err := st.Put(ctx, t)
			if err != nil {
				return formatter.Fail(ExitFailure, ErrCodeStore, fmt.Errorf("%s: %w", path, err))
			}
			if opts.Name != "" {
				if err := st.Tag(ctx, opts.Name, entry.CID); err != nil {
					return formatter.Fail(ExitFailure, ErrCodeStore, err)
				}
			}
			stored, err := describe(cmd, st, entry)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStore, err)
			}
			out.Entries = append(out.Entries, stored)
			formatter.VerboseLog("stored %s as %s", path, stored.CID)
		}
		return formatter.Success(out)
	})
}

func runStoreGet(cmd *cobra.Command, opts *StoreOptions, ref string) error {
	formatter := opts.formatter(cmd)
	return withStore(cmd, opts, formatter, func(st *store.Store) error {
		entry, err := st.Resolve(cmd.Context(), ref)
		if errors.Is(err, store.ErrNotFound) {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, err)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		stored, err := describe(cmd, st, entry)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		if opts.Format == "json" {
			return formatter.Success(stored)
		}
		encoded, err := fnser.JSONOrder.Encode(entry.Triple)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
		}
		return formatter.Success(string(encoded))
	})
}

func runStoreTag(cmd *cobra.Command, opts *StoreOptions, name, ref string) error {
	formatter := opts.formatter(cmd)
	c, err := cid.Decode(ref)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDecode, fmt.Errorf("parsing cid %q: %w", ref, err))
	}
	return withStore(cmd, opts, formatter, func(st *store.Store) error {
		err := st.Tag(cmd.Context(), name, c)
		if errors.Is(err, store.ErrNotFound) {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, err)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		return formatter.Success(fmt.Sprintf("%s -> %s", name, c))
	})
}

func runStoreList(cmd *cobra.Command, opts *StoreOptions) error {
	formatter := opts.formatter(cmd)
	return withStore(cmd, opts, formatter, func(st *store.Store) error {
		entries, err := st.List(cmd.Context())
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		out := StoreList{Entries: make([]StoredTriple, 0, len(entries))}
		for _, e := range entries {
			stored, err := describe(cmd, st, e)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStore, err)
			}
			out.Entries = append(out.Entries, stored)
		}
		return formatter.Success(out)
	})
}

func describe(cmd *cobra.Command, st *store.Store, e store.Entry) (StoredTriple, error) {
	names, err := st.Names(cmd.Context(), e.CID)
	if err != nil {
		return StoredTriple{}, err
	}
	return StoredTriple{CID: e.CID.String(), Seq: e.Seq, Names: names, Triple: e.Triple}, nil
}
