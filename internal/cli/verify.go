package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	DB string
}

// VerifyResult reports a successful verification.
type VerifyResult struct {
	Ref       string `json:"ref"`
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
}

func (r VerifyResult) String() string {
	return fmt.Sprintf("%s: ok (%s %s)", r.Ref, r.Algorithm, r.Hash)
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <triple.json|ref>",
		Short: "Check a triple's hash",
		Long: `Verify recomputes the hash of a triple and compares it with the stored
one, then checks that the triple can be rebuilt. A missing hash or a
mismatch exits with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "resolve the argument in this registry")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *VerifyOptions, arg string) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	codec, err := opts.codec(cmd, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	rec, err := loadRecord(cmd, arg, opts.DB, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, recordErrCode(err), err)
	}

	dopts := cfg.DeserializeOptions()
	dopts.Hash = true
	if _, err := codec.DeserializeRecord(cmd.Context(), rec, dopts); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}

	hash, _ := rec.StoredHash()
	return formatter.Success(VerifyResult{
		Ref:       arg,
		Algorithm: codec.Provider().Algorithm(),
		Hash:      hash,
	})
}
