package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/normanking/toolrouter/internal/toolrouter"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ROUTE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

type routeOptions struct {
	history  []string
	wait     time.Duration
	debug    bool
	asJSON   bool
	semantic bool
}

func (o *routeOptions) bind(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&o.wait, "wait", 30*time.Second, "how long to wait for tool embeddings (0 routes immediately)")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "include per-tool scores")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&o.semantic, "semantic", true, "enable embedding similarity matching")
}

func (o *routeOptions) routerConfig() toolrouter.Config {
	rc := cfg.Router
	rc.EnableDebugInfo = rc.EnableDebugInfo || o.debug
	rc.EnableSemanticMatching = rc.EnableSemanticMatching && o.semantic
	return rc
}

func routeCmd() *cobra.Command {
	opts := &routeOptions{}

	cmd := &cobra.Command{
		Use:   "route <request>",
		Short: "Select the tools for a request",
		Example: `  toolrouter route "read the contents of main.go"
  toolrouter route --context "I'm in Paris" "will it rain tomorrow"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts.routerConfig())
			if err != nil {
				return err
			}
			defer s.Close()

			waitForCache(ctx, cmd.ErrOrStderr(), s.router, opts.wait)

			input := strings.Join(args, " ")
			result := s.router.RouteWithContext(ctx, input, opts.history)
			return printResult(cmd.OutOrStdout(), result, opts.asJSON)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringArrayVar(&opts.history, "context", nil, "earlier conversation line (repeatable, oldest first)")
	return cmd
}

// waitForCache gives the background build up to d. Routing proceeds either
// way; an unready cache only means no semantic matches.
func waitForCache(ctx context.Context, errOut io.Writer, r *toolrouter.Router, d time.Duration) {
	if d <= 0 || r.IsReady() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	if err := r.WaitForReady(ctx); err != nil {
		fmt.Fprintln(errOut, warnStyle.Render(fmt.Sprintf("tool embeddings not ready after %s, routing without them", d)))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// REPL COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func replCmd() *cobra.Command {
	opts := &routeOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Route requests read line by line from stdin",
		Long: `Reads one request per line and routes each with the preceding lines as
conversation context. Prints routing statistics at the end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, opts.routerConfig())
			if err != nil {
				return err
			}
			defer s.Close()

			waitForCache(ctx, cmd.ErrOrStderr(), s.router, opts.wait)

			if err := runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), s.router, opts.asJSON); err != nil {
				return err
			}
			if !opts.asJSON {
				printStats(cmd.OutOrStdout(), s.router.Stats())
			}
			return nil
		},
	}

	opts.bind(cmd)
	return cmd
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, r *toolrouter.Router, asJSON bool) error {
	var history []string
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !asJSON {
			fmt.Fprintln(out, promptStyle.Render("> ")+line)
		}
		if err := printResult(out, r.RouteWithContext(ctx, line, history), asJSON); err != nil {
			return err
		}
		history = append(history, line)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// WARM COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func warmCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Build and persist the tool embedding cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := cfg.Router
			rc.EnableSemanticMatching = true

			s, err := openSession(cmd.Context(), rc)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.router.WaitForReadyTimeout(timeout); err != nil {
				return fmt.Errorf("warming tool embeddings: %w", err)
			}

			out := cmd.OutOrStdout()
			printStats(out, s.router.Stats())
			printField(out, "Provider", s.router.ProviderName())
			printField(out, "Location", s.router.CacheLocation())
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum time to spend embedding")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// OUTPUT
// ═══════════════════════════════════════════════════════════════════════════════

func printResult(out io.Writer, result *toolrouter.RouteResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "%s  %s\n",
		methodStyle(result.Method).Render(string(result.Method)),
		dimStyle.Render(fmt.Sprintf("confidence %.2f", result.Confidence)))

	if result.ShouldSkip {
		fmt.Fprintln(out, dimStyle.Render("  no tools needed"))
	}
	for _, t := range result.Tools {
		fmt.Fprintf(out, "  %s %s\n", toolStyle.Render(t.Name), dimStyle.Render(t.Description))
	}

	if result.Debug != nil {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("  request %s in %s", result.Debug.RequestID, result.Debug.Elapsed)))
		for _, sc := range result.Debug.Scores {
			line := fmt.Sprintf("    %-24s %.3f", sc.ToolName, sc.Score)
			if sc.MatchedKeyword != "" {
				line += fmt.Sprintf("  (%s)", sc.MatchedKeyword)
			}
			fmt.Fprintln(out, dimStyle.Render(line))
		}
	}
	return nil
}

func printStats(out io.Writer, st toolrouter.Stats) {
	fmt.Fprintln(out, headerStyle.Render("Router Statistics"))
	printField(out, "Ready", fmt.Sprintf("%t", st.Ready))
	printField(out, "Cache source", st.CacheSource)
	printField(out, "Cached tools", fmt.Sprintf("%d of %d", st.CachedTools, st.CatalogTools))
	printField(out, "Build time", st.BuildDuration.Round(time.Millisecond).String())
	if st.Routes > 0 {
		printField(out, "Routes", fmt.Sprintf("%d (skipped %d, keyword %d, semantic %d, fallback %d)",
			st.Routes, st.Skipped, st.Keyword, st.Semantic, st.Fallback))
	}
	if st.CacheErrors > 0 {
		printField(out, "Cache errors", fmt.Sprintf("%d", st.CacheErrors))
	}
}
