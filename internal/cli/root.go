package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"prrebase.dev/prrebase/internal/config"
	"prrebase.dev/prrebase/internal/tui"
)

// Environment is what commands read from the process they run in
type Environment struct {
	// Lookup reads environment variables
	Lookup config.EnvLookup
	// Dir is the directory the repository is detected from
	Dir string
	// Interactive enables the progress spinner
	Interactive bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// DefaultEnvironment describes the current process
func DefaultEnvironment() Environment {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return Environment{
		Lookup:      os.Getenv,
		Dir:         dir,
		Interactive: tui.IsTTY(),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// exitError carries a non-zero exit code for an error that was already reported
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string, env Environment) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prrebase",
		Short: "Rebase a GitHub pull request onto its base branch",
		Long: `prrebase rebases a GitHub pull request onto the current tip of its base
branch in a throwaway workspace and pushes the result back with a lease, so a
concurrent update to the pull request is never overwritten.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(env.Stdout)
	rootCmd.SetErr(env.Stderr)

	rootCmd.AddCommand(newRebaseCmd(env))
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}

// Execute runs the command line and returns the process exit code
func Execute(version, commit, date string, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ExecuteContext(ctx, version, commit, date, args, DefaultEnvironment())
}

// ExecuteContext runs the command line with an explicit environment
func ExecuteContext(ctx context.Context, version, commit, date string, args []string, env Environment) int {
	rootCmd := NewRootCmd(version, commit, date, env)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(env.Stderr, "ERROR: %v\n", err)
	return 1
}
