package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"codementor/internal/assist"
	"codementor/internal/completion"
	"codementor/internal/panel"
	"codementor/internal/parse"
)

const shutdownGrace = 5 * time.Second

func (c *cli) fail(what string, err error) error {
	c.status.Fail("Error")
	return fmt.Errorf("%s failed [%s]: %w", what, assist.Kind(err), err)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newExplainCmd(c *cli) *cobra.Command {
	var lines, language string
	cmd := &cobra.Command{
		Use:   "explain [file]",
		Short: "Explain a file or a selection of it (stdin when no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			path := firstArg(args)
			code, err := readCode(c.stdin, path, lines)
			if err != nil {
				return err
			}
			c.status.Busy("Gemini explaining...")
			txt, err := c.app.Analyzer.ExplainCode(cmd.Context(), code, orDefault(language, languageID(path)))
			if err != nil {
				return c.fail("Explanation", err)
			}
			c.status.Done("Explanation ready")
			fmt.Fprintln(c.stdout, txt)
			return nil
		}),
	}
	cmd.Flags().StringVar(&lines, "lines", "", "only lines start:end (1-based, inclusive)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "language id (default: from the file extension)")
	return cmd
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var lines, language string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Review code quality, issues and improvements",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			path := firstArg(args)
			code, err := readCode(c.stdin, path, lines)
			if err != nil {
				return err
			}
			c.status.Busy("Analyzing...")
			res, err := c.app.Analyzer.AnalyzeCode(cmd.Context(), code, orDefault(language, languageID(path)))
			if err != nil {
				return c.fail("Analysis", err)
			}
			c.status.Done("Analysis Complete")
			if asJSON {
				return c.printJSON(res)
			}
			c.printAnalysis(res)
			return nil
		}),
	}
	cmd.Flags().StringVar(&lines, "lines", "", "only lines start:end (1-based, inclusive)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "language id (default: from the file extension)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the parsed result as JSON")
	return cmd
}

func (c *cli) printAnalysis(res parse.CodeAnalysis) {
	if !res.Structured() {
		fmt.Fprintln(c.stdout, res.Raw)
		return
	}
	if res.Score.Set {
		fmt.Fprintf(c.stdout, "Score: %d/10\n", res.Score.Value)
	}
	if res.Summary.Set {
		fmt.Fprintf(c.stdout, "Summary: %s\n", res.Summary.Value)
	}
	printList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(c.stdout, "%s:\n", title)
		for _, it := range items {
			fmt.Fprintf(c.stdout, "  - %s\n", it)
		}
	}
	printList("Issues", res.Issues)
	printList("Suggestions", res.Suggestions)
}

func newRepoCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Analyze the architecture, quality and risks of the workspace",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			progress := assist.ProgressFunc(func(percent int, message string) {
				c.app.Log.Info("[%3d%%] %s", percent, message)
				c.status.Busy("%s", message)
			})
			report, err := c.app.Analyzer.AnalyzeRepository(cmd.Context(), c.opts.workspace, progress)
			if err != nil {
				return c.fail("Repository analysis", err)
			}
			c.status.Done("Repository analysis complete")
			if asJSON {
				return c.printJSON(report)
			}
			fmt.Fprintf(c.stdout, "Files: %d  Lines: %d  Languages: %s\n\n",
				report.Stats.TotalFiles, report.Stats.TotalLines, strings.Join(report.Stats.Languages, ", "))
			fmt.Fprintln(c.stdout, report.Analysis.FullText)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print files, stats and sections as JSON")
	return cmd
}

func newAskCmd(c *cli) *cobra.Command {
	var contextFile string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			var previous string
			if contextFile != "" {
				raw, err := os.ReadFile(contextFile)
				if err != nil {
					return err
				}
				previous = string(raw)
			}
			c.status.Busy("Thinking...")
			txt, err := c.app.Analyzer.AskQuestion(cmd.Context(), c.opts.workspace, strings.Join(args, " "), previous)
			if err != nil {
				return c.fail("Question", err)
			}
			c.status.Done("Answer ready")
			fmt.Fprintln(c.stdout, txt)
			return nil
		}),
	}
	cmd.Flags().StringVar(&contextFile, "context-file", "", "reuse a previously built repository context")
	return cmd
}

func newRelatedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "related <term>",
		Short: "Find files related to a term",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			c.status.Busy("Searching related files...")
			txt, err := c.app.Analyzer.FindRelatedFiles(cmd.Context(), c.opts.workspace, strings.Join(args, " "))
			if err != nil {
				return c.fail("Related file search", err)
			}
			c.status.Done("Related files ready")
			fmt.Fprintln(c.stdout, txt)
			return nil
		}),
	}
}

func newCompleteCmd(c *cli) *cobra.Command {
	var line, char int
	var language string
	var showContext bool
	cmd := &cobra.Command{
		Use:   "complete <file>",
		Short: "Suggest completions at --line/--char (1-based)",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			lines := strings.Split(string(raw), "\n")
			if line < 1 || line > len(lines) {
				return fmt.Errorf("--line %d outside 1..%d", line, len(lines))
			}
			req := completion.Request{
				Lines:     lines,
				Language:  orDefault(language, languageID(args[0])),
				Line:      line - 1,
				Character: max(char-1, 0),
			}
			req.Word = completion.WordAt(lines[req.Line], req.Character)
			if showContext {
				fmt.Fprint(c.stdout, completion.ContextText(lines, req.Line, req.Character, 10, 5))
				fmt.Fprintln(c.stdout)
			}

			suggestions := c.app.Completion.Provide(cmd.Context(), req)
			if len(suggestions) == 0 {
				fmt.Fprintln(c.stdout, "No suggestions.")
				return nil
			}
			for _, s := range suggestions {
				fmt.Fprintf(c.stdout, "%s\n    %s\n", s.Completion, s.Explanation)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&line, "line", 1, "cursor line (1-based)")
	cmd.Flags().IntVar(&char, "char", 1, "cursor column (1-based)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "language id (default: from the file extension)")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the text around the cursor first")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis panel bridge over a websocket (/ws)",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			a := c.app
			bridge := panel.NewBridge(a.Analyzer, panel.BridgeOptions{
				Root:           c.opts.workspace,
				SetKey:         a.SetAPIKey,
				AllowedOrigins: a.Config.AllowedOrigins,
				Logger:         a.Log,
			})
			listenAddr := orDefault(addr, a.Config.Addr)
			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return err
			}
			srv := panel.NewServer(listenAddr, panel.NewMux(bridge), a.Log)
			c.status.Done("Panel bridge on ws://%s/ws", ln.Addr())

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			a.Log.Info("Shutting down panel bridge...")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
