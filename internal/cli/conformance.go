package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fnser/internal/harness"
)

// ConformanceOptions holds flags for the conformance command.
type ConformanceOptions struct {
	*RootOptions
	Filter string
}

// ScenarioOutcome is the result of one scenario.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// ConformanceReport summarizes a conformance run.
type ConformanceReport struct {
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Scenarios []ScenarioOutcome `json:"scenarios"`
}

func (r ConformanceReport) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		status := "PASS"
		if !s.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%s %s\n", status, s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "    %s\n", e)
		}
	}
	fmt.Fprintf(&b, "%d scenarios, %d passed, %d failed", r.Total, r.Passed, r.Failed)
	return b.String()
}

// NewConformanceCommand creates the conformance command.
func NewConformanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConformanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conformance <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Conformance loads every scenario in a directory, serializes its source,
rebuilds the callable, makes the listed calls and evaluates assertions.
Each scenario runs against its own in-memory registry. Any failure exits
with status 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConformance(cmd, opts, args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name contains this")

	return cmd
}

func runConformance(cmd *cobra.Command, opts *ConformanceOptions, dir string) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	codec, err := opts.codec(cmd, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	scenarios, err := harness.LoadScenarios(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReadFailed, err)
	}

	report := ConformanceReport{Scenarios: []ScenarioOutcome{}}
	for _, s := range scenarios {
		if opts.Filter != "" && !strings.Contains(s.Name, opts.Filter) {
			continue
		}
		formatter.VerboseLog("running %s", s.Name)

		result, err := harness.Run(cmd.Context(), s,
			harness.WithCodec(codec),
			harness.WithLogger(opts.logger(cmd)))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("%s: %w", s.Name, err))
		}

		report.Total++
		if result.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Scenarios = append(report.Scenarios, ScenarioOutcome{
			Name:   s.Name,
			Pass:   result.Pass,
			Errors: result.Errors,
		})
	}

	if report.Total == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound,
			NewExitError(ExitCommandError, fmt.Sprintf("no scenarios in %s", dir)))
	}

	if err := formatter.Success(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", report.Failed, report.Total))
	}
	return nil
}
