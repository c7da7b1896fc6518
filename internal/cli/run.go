package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/harness"
	"github.com/roach88/storefront/internal/state"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
}

// runReport is the output of one scenario run.
type runReport struct {
	Name   string         `json:"name"`
	Pass   bool           `json:"pass"`
	Errors []string       `json:"errors,omitempty"`
	Trace  []string       `json:"trace"`
	Final  state.Snapshot `json:"final"`

	rendered []byte
}

func (r runReport) RenderText(w io.Writer) error {
	if _, err := w.Write(r.rendered); err != nil {
		return err
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintf(w, "FAIL %s\n", e); err != nil {
			return err
		}
	}
	return nil
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its trace",
		Long: `Run one harness scenario against a fresh session and print every
state change each step produced, followed by the final state.

Exit codes:
  0 - Every step behaved as the scenario expects
  1 - A step failed unexpectedly or did not fail as expected
  2 - Command error (missing or invalid scenario file)

Example:
  storefront run ./scenarios/account_flow.yaml
  storefront run ./scenarios/cart_flow.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	var logOpts []harness.Option
	if opts.Verbose {
		logOpts = append(logOpts, harness.WithLogger(slog.New(slog.NewTextHandler(out.GetErrWriter(), nil))))
	}
	result, err := harness.Run(cmd.Context(), scenario, logOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	report, err := newRunReport(scenario.Name, result)
	if err != nil {
		return err
	}
	if !result.Pass {
		if err := out.Failure(report); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return out.Success(report)
}

func newRunReport(name string, result *harness.Result) (runReport, error) {
	rendered, err := renderResult(name, result)
	if err != nil {
		return runReport{}, err
	}

	trace := make([]string, 0)
	for _, c := range result.Changes() {
		trace = append(trace, fmt.Sprintf("%04d %s", c.Seq, harness.FormatChange(c)))
	}
	return runReport{
		Name:     name,
		Pass:     result.Pass,
		Errors:   result.Errors,
		Trace:    trace,
		Final:    result.Final,
		rendered: rendered,
	}, nil
}

// renderResult renders a result as golden-file text.
func renderResult(name string, result *harness.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := harness.Render(&buf, name, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
