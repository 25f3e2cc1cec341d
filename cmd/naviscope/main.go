// Naviscope is the composition root that wires the index engine, the
// discovery pipeline, and the shell/LSP/MCP-facing packages together
// into a runnable binary. It owns none of their logic directly — every
// subcommand below delegates to internal/engine, internal/query, or
// internal/mcpserver and exists only to parse flags, build a logger, and
// map errors to exit codes.
//
// Grounded on C360Studio-semspec/cmd/semspec/main.go's cobra root plus
// panic-recovery shape, and mvp-joe-canopy/cmd/canopy/main.go's
// index-subcommand flag layout and repo-root resolution helper.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naviscope/naviscope/internal/config"
	"github.com/naviscope/naviscope/internal/discovery"
	"github.com/naviscope/naviscope/internal/discovery/reference"
	"github.com/naviscope/naviscope/internal/engine"
	"github.com/naviscope/naviscope/internal/httpapi"
	"github.com/naviscope/naviscope/internal/mcpserver"
	"github.com/naviscope/naviscope/internal/naverr"
	"github.com/naviscope/naviscope/internal/query"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/naviscope/naviscope/util"
)

// Exit codes, spec §6: 0 success, 1 generic failure, 2 invalid query, 3
// I/O failure reading the project, 4 index load/save failure.
const (
	exitOK             = 0
	exitGeneric        = 1
	exitInvalidQuery   = 2
	exitIOFailure      = 3
	exitIndexIOFailure = 4
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, buf[:n])
			os.Exit(exitGeneric)
		}
	}()

	os.Exit(run())
}

func run() int {
	cmd := rootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "naviscope: %v\n", err)
		return exitCodeFor(err)
	}
	return exitOK
}

func exitCodeFor(err error) int {
	var ne *naverr.Error
	if errors.As(err, &ne) {
		switch ne.Kind {
		case naverr.QueryFault:
			return exitInvalidQuery
		case naverr.IOFault:
			return exitIOFailure
		case naverr.Fatal:
			return exitIndexIOFailure
		}
	}
	if os.IsNotExist(err) || os.IsPermission(err) {
		return exitIOFailure
	}
	return exitGeneric
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "naviscope",
		Short: "Code knowledge graph engine",
		Long: "Naviscope indexes a workspace into a queryable code graph, serving the\n" +
			"same in-memory snapshot to an interactive shell, an LSP front-end, and\n" +
			"an MCP tool surface. This binary is a thin composition root: it builds\n" +
			"an engine over a project root and either runs one query, serves it over\n" +
			"MCP, or watches the tree and keeps it current.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().String("project", "", "project root (default: .naviscope.yaml, $NAVISCOPE_PROJECT_ROOT, then the git root of the current directory)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default from config/env, else info)")

	cmd.AddCommand(indexCmd())
	cmd.AddCommand(queryCmd())
	cmd.AddCommand(serveMCPCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "naviscope 0.1.0")
			return nil
		},
	}
}

// loadedConfig resolves internal/config's layered settings, then applies
// any explicitly-set --project/--log-level persistent flags on top —
// cobra's own flag parsing, rather than posflag, drives the final
// override so the two libraries' precedence rules never have to agree
// with each other.
func loadedConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("project"); v != "" {
		cfg.ProjectRoot = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return cfg.Build()
}

// resolveProjectRoot returns projectRoot unchanged if set to anything
// other than its zero-value default, otherwise the git root of the
// current directory (util.FindGitRoot), falling back to "." if neither
// is available.
func resolveProjectRoot(projectRoot string) string {
	if projectRoot != "" && projectRoot != "." {
		return projectRoot
	}
	if root, err := util.FindGitRoot(); err == nil {
		return root
	}
	return "."
}

// buildEngine constructs an Engine with the default language plugin
// registry, attempting a Load of any existing on-disk index before
// returning so callers start from a warm snapshot when one exists.
func buildEngine(projectRoot string, logger *zap.Logger, metrics *engine.Metrics) (*engine.Engine, error) {
	registry, err := discovery.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("build plugin registry: %w", err)
	}
	pipeline := discovery.NewPipeline(registry, runtime.NumCPU(), logger)

	e, err := engine.New(projectRoot, pipeline, engine.WithLogger(logger), engine.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}
	e.Load()
	return e, nil
}

func indexCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build (or rebuild) the code graph for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			root := resolveProjectRoot(cfg.ProjectRoot)

			reg := prometheus.NewRegistry()
			e, err := buildEngine(root, logger, engine.NewMetrics(reg))
			if err != nil {
				return err
			}

			ctx := context.Background()
			stats, err := e.Rebuild(ctx)
			if err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files at version %d (%d faults), saved to %s\n",
				stats.FilesTotal, stats.Version, stats.Faults, e.IndexPath())

			if !watch {
				return nil
			}
			return watchLoop(ctx, cmd, e, cfg)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep watching the tree for changes after the initial index")
	return cmd
}

func watchLoop(ctx context.Context, cmd *cobra.Command, e *engine.Engine, cfg *config.Config) error {
	watchCfg := engine.WatchConfig{
		DebounceWindow:   time.Duration(cfg.DebounceMillis) * time.Millisecond,
		RebuildThreshold: cfg.RebuildThreshold,
	}
	if err := e.Watch(ctx, watchCfg); err != nil {
		return fmt.Errorf("start watch: %w", err)
	}
	defer e.StopWatch()

	fmt.Fprintln(cmd.OutOrStdout(), "watching for changes, press Ctrl+C to stop")
	sigCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-sigCtx.Done()
	return nil
}

func queryCmd() *cobra.Command {
	var (
		kind    string
		pattern string
		fqn     string
		expr    string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a single query against a project's saved index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			root := resolveProjectRoot(cfg.ProjectRoot)

			reg := prometheus.NewRegistry()
			e, err := buildEngine(root, logger, engine.NewMetrics(reg))
			if err != nil {
				return err
			}

			registry, err := discovery.NewDefaultRegistry()
			if err != nil {
				return fmt.Errorf("build plugin registry: %w", err)
			}
			finder := reference.NewFinder(registry, nil, nil, logger)

			eng := query.New(e.Snapshot(), query.WithFinder(finder))
			res, err := eng.Execute(cmd.Context(), query.Query{
				Kind:    query.Kind(kind),
				Pattern: pattern,
				FQN:     fqn,
				Expr:    expr,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "find", "one of find, ls, cat, deps-out, deps-in, refs")
	cmd.Flags().StringVar(&pattern, "pattern", "", "regex pattern for find")
	cmd.Flags().StringVar(&fqn, "fqn", "", "fully-qualified name for ls, cat, deps-out, deps-in, refs")
	cmd.Flags().StringVar(&expr, "expr", "", "optional CEL filter expression for find")
	return cmd
}

func serveMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the engine over the Model Context Protocol on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadedConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			root := resolveProjectRoot(cfg.ProjectRoot)

			reg := prometheus.NewRegistry()
			metrics := engine.NewMetrics(reg)
			e, err := buildEngine(root, logger, metrics)
			if err != nil {
				return err
			}

			var systemPrompt string
			if cfg.SystemPromptPath != "" {
				data, err := os.ReadFile(cfg.SystemPromptPath)
				if err != nil {
					return fmt.Errorf("read system prompt: %w", err)
				}
				systemPrompt = string(data)
			}

			registry, err := discovery.NewDefaultRegistry()
			if err != nil {
				return fmt.Errorf("build plugin registry: %w", err)
			}

			srv, err := mcpserver.New(e, registry,
				mcpserver.WithLogger(logger),
				mcpserver.WithSystemPrompt(systemPrompt),
			)
			if err != nil {
				return fmt.Errorf("construct mcp server: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			health := httpapi.New(e, reg)
			go func() {
				if err := health.ListenAndServe(cfg.MetricsAddr); err != nil {
					logger.Warn("metrics server stopped", zap.Error(err))
				}
			}()

			go func() {
				if _, err := e.Rebuild(ctx); err != nil {
					logger.Error("initial index failed", zap.Error(err))
				}
			}()

			logger.Info("serving MCP over stdio", zap.String("project_root", root))
			return srv.Serve(ctx)
		},
	}
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	return writeJSON(cmd.OutOrStdout(), v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
