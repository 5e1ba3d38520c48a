package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"codementor/internal/app"
	"codementor/internal/config"
	"codementor/internal/llm"
)

// offlineReply answers every prompt when --offline is set.
const offlineReply = "Offline mode: no request was sent to Gemini."

type globalOptions struct {
	configFile string
	apiKey     string
	model      string
	logLevel   string
	logFile    string
	workspace  string
	timeout    time.Duration
	offline    bool
	quiet      bool
}

// cli carries what every subcommand needs once the root pre-run has finished.
type cli struct {
	opts   globalOptions
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	app    *app.App
	status *status
	cancel context.CancelFunc
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "codementor",
		Short: "Explain, review and complete code with Gemini",
		Long: `CodeMentor sends code from your workspace to Gemini and prints the reply.

Available commands:
  explain  - explain a file or selection
  analyze  - review code quality
  repo     - analyze the whole repository
  ask      - ask a question about the repository
  related  - find files related to a term
  complete - suggest completions at a cursor position
  serve    - run the websocket panel bridge`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	f := root.PersistentFlags()
	f.StringVar(&c.opts.configFile, "config", "", "config file (default "+config.DefaultFile+")")
	f.StringVar(&c.opts.apiKey, "api-key", "", "Gemini API key (default $GEMINI_API_KEY)")
	f.StringVar(&c.opts.model, "model", "", "Gemini model id")
	f.StringVar(&c.opts.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&c.opts.logFile, "log-file", "", "also write logs to this rotated file")
	f.StringVarP(&c.opts.workspace, "workspace", "w", ".", "workspace folder")
	f.DurationVar(&c.opts.timeout, "timeout", 0, "give up on a request after this long (0 = no limit)")
	f.BoolVar(&c.opts.offline, "offline", false, "never call Gemini; answer with a placeholder")
	f.BoolVarP(&c.opts.quiet, "quiet", "q", false, "hide the status line")

	root.AddCommand(
		newExplainCmd(c),
		newAnalyzeCmd(c),
		newRepoCmd(c),
		newAskCmd(c),
		newRelatedCmd(c),
		newCompleteCmd(c),
		newServeCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.opts.configFile)
	if err != nil {
		return err
	}
	if c.opts.apiKey != "" {
		cfg.APIKey = c.opts.apiKey
	}
	if c.opts.model != "" {
		cfg.Model = c.opts.model
	}
	if c.opts.logLevel != "" {
		cfg.Log.Level = c.opts.logLevel
	}
	if c.opts.logFile != "" {
		cfg.Log.File = c.opts.logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var opts app.Options
	opts.Console = c.stderr
	if c.opts.offline {
		opts.Client = llm.NewFakeClient(offlineReply)
	} else if cfg.APIKey == "" && cmd.Name() != "serve" {
		key, err := c.promptKey()
		if err != nil {
			return err
		}
		cfg.APIKey = key
	}

	ctx := cmd.Context()
	if c.opts.timeout > 0 {
		ctx, c.cancel = context.WithTimeout(ctx, c.opts.timeout)
		cmd.SetContext(ctx)
	}

	c.app, err = app.New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	c.status = newStatus(c.stderr, c.opts.quiet)
	return nil
}

// run adapts fn to a cobra RunE that always releases the app afterwards.
func (c *cli) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if cerr := c.teardown(); err == nil {
			err = cerr
		}
		return err
	}
}

func (c *cli) teardown() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.app == nil {
		return nil
	}
	return c.app.DisposeAll()
}

// promptKey asks for the API key without echo. Non-interactive runs get an
// empty key and fail later with an uninitialized client.
func (c *cli) promptKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if c.stdin != os.Stdin || !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(c.stderr, "Enter your Gemini API Key (from https://aistudio.google.com/): ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(c.stderr)
	if err != nil {
		return "", fmt.Errorf("read API key: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
