package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cuemby/edgerunner/pkg/admin"
	"github.com/cuemby/edgerunner/pkg/config"
	"github.com/cuemby/edgerunner/pkg/conn"
	"github.com/cuemby/edgerunner/pkg/events"
	"github.com/cuemby/edgerunner/pkg/frontdoor"
	"github.com/cuemby/edgerunner/pkg/log"
	"github.com/cuemby/edgerunner/pkg/metrics"
	"github.com/cuemby/edgerunner/pkg/pool"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "edgerunnerd",
	Short: "edgerunnerd - edge function runtime front door",
	Long: `edgerunnerd is the edge function runtime's front door: it accepts
HTTP requests on the data port, routes each to an isolated per-service
worker through the pool dispatch subsystem, and streams the worker's
response back to the client.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"edgerunnerd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("edgerunnerd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the front door and serve requests",
	Long: `serve binds the data-port and admin-port listeners and begins
dispatching every inbound HTTP request to the configured main worker.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML config file (flags explicitly set on the command line override its values)")
	serveCmd.Flags().String("ip", "127.0.0.1", "Listener bind address")
	serveCmd.Flags().Uint16("data-port", 9000, "Data-port (HTTP) listener port")
	serveCmd.Flags().Uint16("admin-port", 9001, "Admin-port (JSON) listener port")
	serveCmd.Flags().String("main-service-path", "/main", "Service path mounted as the main worker")
	serveCmd.Flags().String("events-service-path", "", "Service path of the events-worker sidecar (optional; enables lifecycle event publishing)")
	serveCmd.Flags().Duration("idle-timeout", 0, "Evict a worker once it has gone this long without a dispatch (0 disables idle eviction)")
	serveCmd.Flags().Bool("no-signal-handler", false, "Disable interrupt-driven graceful shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON, Output: os.Stdout})
	metrics.SetVersion(Version)

	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return fmt.Errorf("edgerunnerd: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("edgerunnerd: %w", err)
	}

	logger := log.WithComponent("edgerunnerd")
	logger.Info().
		Str("data_addr", cfg.DataAddr()).
		Str("admin_addr", cfg.AdminAddr()).
		Str("main_service_path", cfg.MainServicePath).
		Msg("starting edge function runtime")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !cfg.NoSignalHandler {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			logger.Info().Msg("received interrupt, shutting down")
			cancel()
		}()
	}

	controller := pool.New(pool.LoopbackStartup(referenceWorkerHandler()), cfg.UserWorkerPolicy.Policy())
	if cfg.EventsServicePath != "" {
		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()
		controller.SetEventBroker(broker)
		logger.Info().Str("events_service_path", cfg.EventsServicePath).Msg("lifecycle event publishing enabled")
	}
	controller.Start(ctx)
	metrics.RegisterComponent("pool", true, "")

	// The main worker is bootstrapped before the data-port listener
	// binds, so the first accepted connection never races an absent
	// main worker inbox.
	mainKey, err := controller.Create(ctx, pool.WorkerInitOptions{ServicePath: cfg.MainServicePath})
	if err != nil {
		return fmt.Errorf("edgerunnerd: failed to start main worker: %w", err)
	}
	mainSender := pool.NewDispatchSender(controller, mainKey)

	connService := conn.New(mainSender)
	frontDoor := frontdoor.New(cfg.DataAddr(), connService)
	adminServer := admin.New(cfg.AdminAddr(), controller)
	metrics.RegisterComponent("frontdoor", true, "")

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return frontDoor.Serve(gctx) })
	group.Go(func() error { return adminServer.Serve(gctx) })

	if err := group.Wait(); err != nil {
		return fmt.Errorf("edgerunnerd: %w", err)
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// loadServeConfig builds the effective Config by layering three
// sources, lowest precedence first: built-in defaults, an optional
// --config YAML file, and whichever flags the caller explicitly set on
// the command line.
func loadServeConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		fileCfg, err := config.LoadFile(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = cfg.MergeOverrides(fileCfg)
	}

	cfg = cfg.MergeOverrides(changedFlagsConfig(cmd))
	return cfg, nil
}

// changedFlagsConfig reads only the flags the caller explicitly passed
// on the command line, leaving every other field at its Go zero value
// so MergeOverrides doesn't clobber the --config file or Default with a
// flag's mere default value.
func changedFlagsConfig(cmd *cobra.Command) config.Config {
	var override config.Config
	flags := cmd.Flags()

	if flags.Changed("ip") {
		override.IP, _ = flags.GetString("ip")
	}
	if flags.Changed("data-port") {
		override.DataPort, _ = flags.GetUint16("data-port")
	}
	if flags.Changed("admin-port") {
		override.AdminPort, _ = flags.GetUint16("admin-port")
	}
	if flags.Changed("main-service-path") {
		override.MainServicePath, _ = flags.GetString("main-service-path")
	}
	if flags.Changed("events-service-path") {
		override.EventsServicePath, _ = flags.GetString("events-service-path")
	}
	if flags.Changed("idle-timeout") {
		idleTimeout, _ := flags.GetDuration("idle-timeout")
		override.UserWorkerPolicy.IdleTimeout = idleTimeout
	}
	if flags.Changed("no-signal-handler") {
		override.NoSignalHandler, _ = flags.GetBool("no-signal-handler")
	}
	return override
}

// referenceWorkerHandler stands in for the script execution engine,
// which is an external collaborator out of scope for this runtime: it
// is the handler pool.LoopbackStartup runs in-process for every
// worker this binary creates, echoing just enough of the request back
// to prove the dispatch path end to end.
func referenceWorkerHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"path":%q,"method":%q}`, r.URL.Path, r.Method)
	})
}
