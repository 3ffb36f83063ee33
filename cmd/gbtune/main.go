// Command gbtune runs a cross-validated grid search for a gradient-boosted
// binary classifier and writes an evaluation report.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// Exit codes. An interrupted run exits with ExitFailure even when the
// interruption surfaced through a TrainingError.
const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitConfiguration   = 2
	ExitNoValidConfig   = 3
	ExitTrainingFailure = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "gbtune: %v\n", err)
	}
	return exitCode(err)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gbtune",
		Short:         "Grid search and model selection for gradient-boosted classifiers",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newSearchCmd())
	return root
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		configErr   *errors.ConfigurationError
		noValidErr  *errors.NoValidConfigurationError
		trainingErr *errors.TrainingError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitFailure
	case errors.As(err, &configErr):
		return ExitConfiguration
	case errors.As(err, &noValidErr):
		return ExitNoValidConfig
	case errors.As(err, &trainingErr):
		return ExitTrainingFailure
	default:
		return ExitFailure
	}
}
