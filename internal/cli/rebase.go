package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"prrebase.dev/prrebase/internal/config"
	"prrebase.dev/prrebase/internal/engine"
	prerrors "prrebase.dev/prrebase/internal/errors"
	"prrebase.dev/prrebase/internal/report"
	"prrebase.dev/prrebase/internal/retry"
	"prrebase.dev/prrebase/internal/runtime"
	"prrebase.dev/prrebase/internal/tui"
)

type rebaseOptions struct {
	token      string
	repo       string
	remote     string
	apiURL     string
	logFile    string
	autosquash bool
	noProgress bool
	verbose    bool
}

func newRebaseCmd(env Environment) *cobra.Command {
	opts := &rebaseOptions{}

	cmd := &cobra.Command{
		Use:   "rebase <pr-number>",
		Short: "Rebase a pull request onto the tip of its base branch",
		Long: `Rebase a pull request onto the tip of its base branch.

The pull request is fetched into a temporary workspace, its commits are
replayed onto the base branch one at a time and the result is pushed back with
--force-with-lease. Nothing is pushed when a commit conflicts or when the base
branch moves during the rebase.`,
		Example: `  prrebase rebase 42
  prrebase rebase 42 --repo angular/dev-infra
  GITHUB_TOKEN=... prrebase rebase 42 --autosquash`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebase(cmd.Context(), env, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.token, "github-token", "", "GitHub access token (defaults to GITHUB_TOKEN, then TOKEN)")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "Repository as owner/name (defaults to the remote's repository)")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "Remote used to detect the repository (default \"origin\")")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "GitHub API base URL, for GitHub Enterprise")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", fmt.Sprintf("Log file (defaults to $%s or ~/.prrebase/logs/prrebase.log)", tui.LogFileEnv))
	cmd.Flags().BoolVar(&opts.autosquash, "autosquash", false, "Fold fixup!, squash! and amend! commits into their targets")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Do not show the progress spinner")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Print debug output")

	return cmd
}

// ParsePRNumber parses a positive pull request number
func ParsePRNumber(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "#"))
	if err != nil || n <= 0 {
		return 0, prerrors.Newf(prerrors.KindInvalidArgument, "parse pull request number",
			"%q is not a pull request number", arg)
	}
	return n, nil
}

func printMissingCredential(w io.Writer) {
	fmt.Fprintf(w, "No Github token set. Please set the `%s` environment variable.\n", config.PrimaryTokenEnv)
	fmt.Fprintln(w, "Alternatively, pass the `--github-token` command line flag.")
	fmt.Fprintf(w, "You can generate a token here: %s\n", config.TokenGenerateURL)
}

func runRebase(ctx context.Context, env Environment, opts *rebaseOptions, arg string) error {
	number, err := ParsePRNumber(arg)
	if err != nil {
		return err
	}

	cred, err := config.NewCredentialResolverWithLookup(env.Lookup).Resolve(opts.token)
	if err != nil {
		if errors.Is(err, prerrors.ErrMissingCredential) {
			printMissingCredential(env.Stderr)
			return &exitError{code: 1}
		}
		return err
	}

	splog := newCommandSplog(env, opts)
	defer splog.Close()

	rctx, err := runtime.GetContext(env.Dir, splog)
	if err != nil {
		return err
	}
	info, err := rctx.ResolveRepository(opts.repo, opts.remote)
	if err != nil {
		return err
	}

	apiURL := opts.apiURL
	if apiURL == "" {
		apiURL = rctx.Config.APIBaseURL()
	}
	req := engine.Request{
		Number:        number,
		Credential:    cred,
		Owner:         info.Owner,
		Repo:          info.Repo,
		APIURL:        apiURL,
		Hostname:      info.Hostname,
		WorkspaceRoot: rctx.Config.WorkspaceRootDir(),
		Autosquash:    opts.autosquash || rctx.Config.AutosquashEnabled(),
		Retry:         retry.FromSettings(rctx.Config.RetrySettings()),
		Splog:         splog,
	}
	splog.Debug("Rebasing %s/%s#%d with a token from %s", info.Owner, info.Repo, number, cred.Source())

	var outcome report.Outcome
	work := func(ctx context.Context, step tui.Step) error {
		req.OnTransition = func(_, to engine.State) {
			if !to.Terminal() {
				step(to.String())
			}
		}
		var err error
		outcome, err = engine.RebasePR(ctx, req)
		return err
	}

	title := fmt.Sprintf("Rebasing %s/%s#%d", info.Owner, info.Repo, number)
	if env.Interactive && !opts.noProgress {
		err = tui.RunProgress(ctx, splog, title, work)
	} else {
		err = tui.RunProgressSimple(ctx, splog, title, work)
	}
	if err != nil {
		return err
	}

	if err := report.Print(env.Stdout, outcome); err != nil {
		return err
	}
	if code := report.ExitCode(outcome); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func newCommandSplog(env Environment, opts *rebaseOptions) *tui.Splog {
	debug := opts.verbose || (env.Lookup != nil && env.Lookup("DEBUG") != "")
	logFile := opts.logFile
	if logFile == "" {
		logFile = tui.GetLogFilePath()
	}
	splog, err := tui.NewSplogWithConfig(env.Stderr, logFile, debug)
	if err != nil {
		splog = tui.NewSplogWithWriter(env.Stderr, debug)
		splog.Warn("Could not open log file %s: %v", logFile, err)
	}
	return splog
}
