// Package app provides the entry point for the magictunnel command-line
// application.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/config"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/discovery"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/forwarder"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/logger"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/mcpclient"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/mcpserver"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/notify"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/progress"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/prompts"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/resources"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router/agents"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/security"
)

// Process exit codes (§6.4).
const (
	ExitOK            = 0
	ExitConfigError   = 64
	ExitRegistryError = 69
	ExitInternalError = 70
	ExitInterrupted   = 130
)

var rootCmd = &cobra.Command{
	Use:               "magictunnel",
	DisableAutoGenTag: true,
	Short:             "MagicTunnel - aggregate and proxy multiple MCP servers behind one endpoint",
	Long: `MagicTunnel is a proxy that aggregates multiple MCP (Model Context Protocol)
servers into a single unified interface. It provides:

- A capability registry parsed from declarative YAML files, hot-reloaded on change
- Routing of tool calls to subprocess, HTTP, gRPC, SSE, GraphQL, WebSocket,
  database, LLM, and external-MCP backends
- Optional smart discovery: natural-language requests resolved to the
  best-matching tool without the caller knowing its name
- A single MCP front-end served over stdio, HTTP, WebSocket, SSE, and
  streamable-HTTP simultaneously`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := cmd.Help(); err != nil {
			logger.Errorf("error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
}

// NewRootCmd builds the root magictunnel command.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to magictunnel configuration file")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logger.Errorf("error binding config flag: %v", err)
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.SilenceUsage = true
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MagicTunnel MCP proxy",
		Long: `Start the MagicTunnel proxy: load the capability registry, connect
configured backends, and serve the aggregated MCP surface over every
transport enabled in configuration.`,
		RunE: runServe,
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			configPath := viper.GetString("config")
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := config.NewValidator().Validate(cfg); err != nil {
				return err
			}
			logger.Infof("configuration is valid (mode=%s)", cfg.RuntimeMode)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			logger.Infof("magictunnel version: %s", version())
		},
	}
}

func version() string { return "0.1.0" }

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewYAMLLoader(path, config.OSEnvReader{})
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// runServe wires every component described in the module map and blocks
// serving until ctx is cancelled.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	configPath := viper.GetString("config")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return exitError{code: ExitConfigError, err: err}
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return exitError{code: ExitConfigError, err: fmt.Errorf("invalid configuration: %w", err)}
	}

	reg := registry.New(cfg.Registry.Roots, registry.ParseOptions{Strict: cfg.Registry.Strict})
	if err := reg.Reload(); err != nil {
		return exitError{code: ExitRegistryError, err: fmt.Errorf("initial registry load failed: %w", err)}
	}
	logger.Infof("registry loaded: %d tools across %d files", len(reg.Current().ToolsByName), len(reg.Current().Files))

	notifyMgr := notify.NewManager(cfg.Server.LogNotificationRate)

	var watcher *registry.Watcher
	if cfg.Registry.HotReload {
		watcher, err = registry.NewWatcher(reg, cfg.Registry.DebounceWindow)
		if err != nil {
			return exitError{code: ExitInternalError, err: fmt.Errorf("failed to start registry watcher: %w", err)}
		}
		watcher.OnChanged = func() {
			notifyMgr.Publish(notify.Notification{Method: notify.MethodToolsListChanged})
		}
		for _, root := range cfg.Registry.Roots {
			if err := watcher.Watch(root); err != nil {
				logger.Warnf("failed to watch registry root %s: %v", root, err)
			}
		}
		go watcher.Run()
		defer func() { _ = watcher.Close() }()
	}

	fwd := forwarder.New()
	fleet := mcpclient.NewFleet(cfg.Backends, fwd)
	fleet.Start(ctx)
	defer func() { _ = fleet.Close() }()

	chain := router.NewChain(
		router.NewLoggingMiddleware(),
		router.NewMetricsMiddleware(prometheus.DefaultRegisterer),
	)
	executors := map[router.AgentKind]router.Executor{
		registry.AgentSubprocess:  agents.NewSubprocessExecutor(),
		registry.AgentHTTP:        agents.NewHTTPExecutor(http.DefaultClient),
		registry.AgentGRPC:        agents.NewGRPCExecutor(agents.DefaultGRPCInvoker{}),
		registry.AgentSSE:         agents.NewSSEExecutor(http.DefaultClient),
		registry.AgentGraphQL:     agents.NewGraphQLExecutor(http.DefaultClient),
		registry.AgentWebSocket:   agents.NewWebSocketExecutor(nil),
		registry.AgentDatabase:    agents.NewDatabaseExecutor(),
		registry.AgentExternalMCP: agents.NewExternalMCPExecutor(fleet),
		// No CompletionProvider ships in this module (§1 scopes concrete
		// LLM SDKs out); registering with a nil provider still lets tool
		// authors configure an llm-kind tool and get a clear
		// "no completion provider configured" error rather than an
		// unknown-agent-kind one.
		registry.AgentLLM: agents.NewLLMExecutor(nil),
	}
	rtr := router.NewDefaultRouter(executors, chain)

	resourceMgr := resources.NewManager(resources.NewFileProvider(), resources.NewMemoryProvider())
	promptMgr := prompts.NewManager(prompts.NewMemoryProvider())
	progressTracker := progress.NewTracker(0, progress.DefaultMaxSessions)

	var hook security.Hook
	var discoveryEngine *discovery.Engine
	if cfg.RuntimeMode == config.ModeAdvanced {
		if cfg.Security.Enabled {
			hook = security.AllowAll{}
		}
		if cfg.SmartDiscovery {
			discoveryEngine = discovery.NewEngine(cfg.Discovery, nil, nil, nil, rtr,
				func() discovery.CandidateSource { return reg.Current() }, hook)
		}
	}

	dispatcher := &mcpserver.Dispatcher{
		Name:      cfg.Server.Name,
		Version:   cfg.Server.Version,
		Snapshot:  func() mcpserver.RegistrySnapshot { return reg.Current() },
		Router:    rtr,
		Discovery: discoveryEngine,
		Resources: resourceMgr,
		Prompts:   promptMgr,
		Notify:    notifyMgr,
		Progress:  progressTracker,
		Hook:      hook,
		Forwarder: fwd,
	}

	if cfg.Server.Stdio {
		go func() {
			if err := mcpserver.ServeStdio(ctx, dispatcher, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				logger.Errorf("stdio transport stopped: %v", err)
			}
		}()
	}

	srv := mcpserver.New(dispatcher, mcpserver.Config{
		HTTPAddr:           cfg.Server.HTTPAddr,
		WebSocketAddr:      cfg.Server.WebSocketAddr,
		WebSocketOrigins:   cfg.Server.WebSocketOrigins,
		SSEAddr:            cfg.Server.SSEAddr,
		StreamableHTTPAddr: cfg.Server.StreamableHTTPAddr,
	})
	if err := srv.Start(ctx); err != nil {
		return exitError{code: ExitInternalError, err: fmt.Errorf("failed to start MCP front-end: %w", err)}
	}
	for _, addr := range srv.Addresses() {
		logger.Infof("listening on %s", addr)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return srv.Stop(context.Background())
}

// exitError carries the process exit code a failure should produce
// (§6.4), surfaced by main.go after cobra unwinds.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string { return e.err.Error() }

// ExitCode extracts the process exit code intended for err, defaulting to
// ExitInternalError for an error that didn't originate as an exitError.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if ee, ok := err.(exitError); ok {
		return ee.code
	}
	return ExitInternalError
}
