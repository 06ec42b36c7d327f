package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fnser"
	"github.com/roach88/fnser/internal/config"
	"github.com/roach88/fnser/internal/store"
)

// DeserializeOptions holds flags for the deserialize command.
type DeserializeOptions struct {
	*RootOptions
	Verify  bool
	Args    string
	DB      string
	Timeout time.Duration
}

// DeserializeResult describes a rebuilt callable and, when called, its
// outcome.
type DeserializeResult struct {
	Type   fnser.Shape `json:"type"`
	Source string      `json:"source"`
	Called bool        `json:"called"`
	Result any         `json:"result,omitempty"`
	Yields []any       `json:"yields,omitempty"`
}

func (r DeserializeResult) String() string {
	var b strings.Builder
	b.WriteString(r.Source)
	if !r.Called {
		return b.String()
	}
	if r.Yields != nil {
		data, _ := json.Marshal(r.Yields)
		fmt.Fprintf(&b, "\nyields: %s", data)
		return b.String()
	}
	data, _ := json.Marshal(r.Result)
	fmt.Fprintf(&b, "\nresult: %s", data)
	return b.String()
}

// NewDeserializeCommand creates the deserialize command.
func NewDeserializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeserializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deserialize <triple.json|ref>",
		Short: "Rebuild a callable from a triple",
		Long: `Deserialize rebuilds the callable described by a triple file and prints
its source. With --args the callable is invoked with the given JSON array
of arguments; generators are driven to completion and their yields printed.

With --db the argument is a CID or name resolved in the registry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeserialize(cmd, opts, args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify the stored hash first")
	cmd.Flags().StringVar(&opts.Args, "args", "", "JSON array of call arguments")
	cmd.Flags().StringVar(&opts.DB, "db", "", "resolve the argument in this registry")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "call timeout")

	return cmd
}

func runDeserialize(cmd *cobra.Command, opts *DeserializeOptions, arg string) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	codec, err := opts.codec(cmd, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	dopts := cfg.DeserializeOptions()
	if cmd.Flags().Changed("verify") {
		dopts.Hash = opts.Verify
	}

	var callArgs []any
	if opts.Args != "" {
		if err := json.Unmarshal([]byte(opts.Args), &callArgs); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDecode,
				WrapExitError(ExitCommandError, "--args must be a JSON array", err))
		}
		if callArgs == nil {
			callArgs = []any{}
		}
	}

	ctx := cmd.Context()
	rec, err := loadRecord(cmd, arg, opts.DB, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, recordErrCode(err), err)
	}

	fn, err := codec.DeserializeRecord(ctx, rec, dopts)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}

	t, _ := rec["type"].(string)
	result := DeserializeResult{Type: fnser.Shape(t), Source: fn.Source()}
	if callArgs != nil {
		if err := call(ctx, fn, opts.Timeout, callArgs, &result); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
		}
	}
	formatter.VerboseLog("rebuilt %s", result.Type)

	return formatter.Success(result)
}

func call(ctx context.Context, fn *fnser.Func, timeout time.Duration, args []any, result *DeserializeResult) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result.Called = true
	switch result.Type {
	case fnser.ShapeGenerator, fnser.ShapeAsyncGenerator:
		yields, err := fn.Collect(ctx, args...)
		if err != nil {
			return fmt.Errorf("call: %w", err)
		}
		result.Yields = yields
	default:
		v, err := fn.Invoke(ctx, args...)
		if err != nil {
			return fmt.Errorf("call: %w", err)
		}
		result.Result = v
	}
	return nil
}

// loadRecord decodes a triple file, or resolves ref in the registry when
// db is set.
func loadRecord(cmd *cobra.Command, ref, db string, cfg *config.Config) (fnser.Record, error) {
	if db == "" {
		data, err := readInput(cmd, ref)
		if err != nil {
			return nil, err
		}
		rec, err := fnser.DecodeRecord(data)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "decoding "+ref, err)
		}
		return rec, nil
	}

	st, err := openStore(db, cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	entry, err := st.Resolve(cmd.Context(), ref)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}
	return fnser.RecordOf(entry.Triple), nil
}

func recordErrCode(err error) string {
	if errors.Is(err, store.ErrNotFound) {
		return ErrCodeNotFound
	}
	return ErrCodeReadFailed
}
