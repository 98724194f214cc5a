// Package main is the CLI entry point for appblock.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_block/internal/api"
	"github.com/eliteGoblin/focusd/app_block/internal/client"
	"github.com/eliteGoblin/focusd/app_block/internal/config"
	"github.com/eliteGoblin/focusd/app_block/internal/daemon"
	"github.com/eliteGoblin/focusd/app_block/internal/domain"
	"github.com/eliteGoblin/focusd/app_block/internal/infra"
	"github.com/eliteGoblin/focusd/app_block/internal/logging"
	"github.com/eliteGoblin/focusd/app_block/internal/monitoring"
	"github.com/eliteGoblin/focusd/app_block/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

// clientTimeout bounds every CLI call to the daemon.
const clientTimeout = 5 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "appblock",
	Short: "Schedule-driven app blocker",
	Long: `appblock keeps distracting apps out of the foreground during the
hours you choose. A background daemon watches foreground changes, covers
blocked apps while their schedule is active, and accepts temporary
overrides or an unlock secret.`,
	Version:      Version,
	SilenceUsage: true,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the blocking daemon in the foreground",
	Long: `Runs the daemon until interrupted. Foreground changes arrive over the
HTTP API, or as "<appId> [unix-millis]" lines on stdin with --stdin.`,
	RunE: runDaemon,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runStatus,
}

var blockedCmd = &cobra.Command{
	Use:   "blocked <app>",
	Short: "Report whether an app is blocked right now",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlocked,
}

var overrideCmd = &cobra.Command{
	Use:   "override <app>",
	Short: "Pause blocking of an app for a while",
	Args:  cobra.ExactArgs(1),
	RunE:  runOverride,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <app> <secret>",
	Short: "Disable an app's rule with its secret",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnlock,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	daemonStdin bool
	overrideFor time.Duration
	jsonOutput  bool
)

func init() {
	daemonCmd.Flags().BoolVar(&daemonStdin, "stdin", false, "Read foreground signals from stdin")
	overrideCmd.Flags().DurationVar(&overrideFor, "for", 10*time.Minute, "Override duration")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(blockedCmd)
	rootCmd.AddCommand(overrideCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.ListenAddr, clientTimeout), nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	dataDir := infra.ResolveDataDir(cfg.DataDir)
	store, err := infra.OpenEncryptedStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open rule store: %w", err)
	}
	defer store.Close()

	pm := infra.NewProcessManager()
	surface, err := infra.NewOverlay(cfg.Overlay, pm, logger.Named("surface"))
	if err != nil {
		return err
	}

	engine := usecase.NewEngine(cfg.Engine(), usecase.EngineDeps{
		Repository: store,
		Overlay:    surface,
		Clock:      infra.SystemClock{},
		Metrics:    monitoring.NewMetrics(),
		Logger:     logger,
	})

	gin.SetMode(gin.ReleaseMode)
	services := []daemon.Service{
		api.NewServer(api.ServerConfig{
			Addr:        cfg.ListenAddr,
			UnlockRPS:   cfg.UnlockRPS,
			UnlockBurst: cfg.UnlockBurst,
		}, engine, logger.Named("api")),
	}
	if daemonStdin {
		services = append(services, infra.NewLineSource(os.Stdin, engine, logger.Named("stdin")))
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	state := domain.DaemonState{
		PID:        os.Getpid(),
		StartedAt:  time.Now(),
		AppVersion: Version,
		ListenAddr: cfg.ListenAddr,
	}
	logger.Info("starting appblock daemon",
		zap.String("data_dir", dataDir),
		zap.String("overlay", cfg.Overlay),
		zap.Bool("stdin", daemonStdin))

	return daemon.NewBlocker(cfg.Blocker(), engine, store, state, logger.Named("daemon"), services...).Run(ctx)
}

func createLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Logging())
	if err != nil {
		// Fallback to stderr if the configured outputs fail
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := readStatus(cfg)
	if err == nil && st.Alive {
		fmt.Printf("appblock is already running (pid %d)\n", st.State.PID)
		return nil
	}

	pid, err := daemon.StartDaemon()
	if err != nil {
		return err
	}

	// Give the daemon a moment to bind its listener
	time.Sleep(500 * time.Millisecond)

	fmt.Println("\n=== appblock Started ===")
	fmt.Printf("PID: %d\n", pid)
	fmt.Printf("API: http://%s\n", cfg.ListenAddr)
	fmt.Println("========================")
	return nil
}

func readStatus(cfg *config.Config) (*daemon.Status, error) {
	store, err := infra.OpenEncryptedStore(infra.ResolveDataDir(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return daemon.ReadStatus(store, infra.NewProcessManager(), cfg.HeartbeatInterval, time.Now())
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("\n=== appblock Status ===")

	st, err := readStatus(cfg)
	if err != nil {
		return fmt.Errorf("failed to read daemon state: %w", err)
	}
	if !st.Registered || !st.Alive {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'appblock start' to enable blocking.")
		return nil
	}

	fmt.Printf("Status: RUNNING (pid %d, version %s)\n", st.State.PID, st.State.AppVersion)
	fmt.Printf("Started: %s\n", humanize.Time(st.State.StartedAt))
	fmt.Printf("Last heartbeat: %s\n", humanize.Time(st.State.LastHeartbeat))
	if st.Stale {
		fmt.Println("Warning: heartbeat is stale, the daemon may be hung")
	}

	health, err := client.New(cfg.ListenAddr, clientTimeout).Health(cmd.Context())
	if err != nil {
		fmt.Printf("API: unreachable (%v)\n", err)
	} else {
		fmt.Printf("Rules: %d\n", health.Rules)
		if health.Foreground != "" {
			fmt.Printf("Foreground: %s\n", health.Foreground)
		}
		if health.Enforcing != "" {
			fmt.Printf("Blocking: %s\n", health.Enforcing)
		}
	}

	fmt.Println("=======================")
	return nil
}

func runBlocked(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	blocked, err := c.Blocked(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if blocked {
		fmt.Printf("%s is blocked\n", args[0])
	} else {
		fmt.Printf("%s is not blocked\n", args[0])
	}
	return nil
}

func runOverride(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	until, err := c.Override(cmd.Context(), args[0], overrideFor)
	if err != nil {
		return err
	}
	fmt.Printf("%s unblocked until %s (%s)\n", args[0], until.Format("15:04:05"), humanize.Time(until))
	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ok, err := c.Unlock(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unlock rejected for %s", args[0])
	}
	fmt.Printf("%s unlocked; its rule is now disabled\n", args[0])
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		fmt.Println(string(out))
	} else {
		fmt.Printf("appblock %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
