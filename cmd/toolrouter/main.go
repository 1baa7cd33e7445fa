// Command toolrouter routes user text to the relevant tools of a catalog.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/normanking/toolrouter/internal/catalog"
	"github.com/normanking/toolrouter/internal/config"
	"github.com/normanking/toolrouter/internal/embedding"
	"github.com/normanking/toolrouter/internal/logging"
	"github.com/normanking/toolrouter/internal/toolrouter"
)

var (
	version     = "0.1.0"
	cfgPath     string
	catalogPath string
	verbose     bool
	noColor     bool

	cfg       *config.Config
	logCloser io.Closer
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "toolrouter",
		Short: "Route user requests to the tools that can serve them",
		Long: `toolrouter picks the subset of a tool catalog relevant to a request.

Requests are matched by greeting detection, then tool keywords, then
embedding similarity, falling back to the whole catalog.

Route a request:      toolrouter route "what's the weather in Paris"
Precompute vectors:   toolrouter warm
Configuration:        toolrouter config show`,
		SilenceUsage:       true,
		PersistentPreRunE:  initRuntime,
		PersistentPostRunE: closeRuntime,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.toolrouter/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "tool catalog path (overrides catalog.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "toolrouter v%s\n", version)
		},
	})

	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(replCmd())
	rootCmd.AddCommand(warmCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// RUNTIME INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

func initRuntime(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return err
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}

	logCfg := cfg.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	if noColor || os.Getenv("NO_COLOR") != "" {
		logCfg.NoColor = true
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	logCfg.Output = cmd.ErrOrStderr()

	logger, closer, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	logging.SetGlobal(logger)
	logCloser = closer

	zlog.Debug().Str("config", configPath()).Str("catalog", cfg.Catalog.Path).Msg("toolrouter starting")
	return nil
}

func closeRuntime(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	path, err := config.DefaultPath()
	if err != nil {
		return ""
	}
	return path
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

// ═══════════════════════════════════════════════════════════════════════════════
// ROUTER SESSION
// ═══════════════════════════════════════════════════════════════════════════════

// session owns a Router and the store behind it.
type session struct {
	router *toolrouter.Router
	store  config.StoreCloser
}

// openSession loads the catalog and starts a Router. routerCfg overrides
// cfg.Router so commands can adjust it per invocation.
func openSession(ctx context.Context, routerCfg toolrouter.Config) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath(), err)
	}

	tools, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'toolrouter catalog init' for a sample)", err)
	}

	var provider embedding.Provider
	if routerCfg.EnableSemanticMatching {
		provider, err = embedding.NewFromConfig(ctx, cfg.Embedding.ProviderConfig())
		if err != nil {
			return nil, err
		}
	}

	store, err := cfg.Cache.OpenStore()
	if err != nil {
		return nil, err
	}

	router := toolrouter.New(tools, routerCfg,
		toolrouter.WithProvider(provider),
		toolrouter.WithStore(store),
		toolrouter.WithLogger(zlog.Logger),
		toolrouter.WithCacheErrorHandler(func(err error) {
			zlog.Warn().Err(err).Msg("tool embedding cache")
		}),
	)

	zerolog.Ctx(ctx).Debug().
		Int("tools", len(tools)).
		Str("provider", router.ProviderName()).
		Str("cache", router.CacheLocation()).
		Msg("router started")

	return &session{router: router, store: store}, nil
}

func (s *session) Close() error {
	_ = s.router.Close()
	return s.store.Close()
}
