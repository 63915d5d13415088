package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/itrack/internal/api"
	"github.com/joescharf/itrack/internal/auth"
	"github.com/joescharf/itrack/internal/contact"
	"github.com/joescharf/itrack/internal/daemon"
)

const serveStopTimeout = 10 * time.Second

var serveBackground bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the JSON REST API under /api/v1.

By default it listens on port 8080 in the foreground. Use --background to
detach; the PID and log file live in state_dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveBackground {
			return serveStartRun()
		}
		return serveRun(cmd.Context())
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	serveCmd.Flags().BoolVarP(&serveBackground, "background", "d", false, "Run detached in the background")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.InDir(viper.GetString("state_dir"))
}

func serveLogPath() string {
	return daemon.LogPath(viper.GetString("state_dir"))
}

func authConfig() auth.Config {
	user := configuredUser()
	return auth.Config{
		Mode:          viper.GetString("auth.mode"),
		Subject:       user.Subject,
		Email:         user.Email,
		OIDCIssuerURL: viper.GetString("auth.oidc.issuer_url"),
		OIDCClientID:  viper.GetString("auth.oidc.client_id"),
		EmailClaim:    viper.GetString("auth.oidc.email_claim"),
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newAPIServer wires the REST API from config.
func newAPIServer(ctx context.Context, logger *slog.Logger) (*api.Server, error) {
	svc, err := getService()
	if err != nil {
		return nil, err
	}

	authn, err := auth.New(ctx, authConfig())
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}

	relay, err := newRelay()
	if errors.Is(err, contact.ErrNotConfigured) {
		logger.Info("contact form disabled: contact.webhook_url is not set")
		relay = nil
	}

	return api.NewServer(svc, api.Options{
		Authenticator: authn,
		Relay:         relay,
		Logger:        logger,
		PageSize:      viper.GetInt("page_size"),
	}), nil
}

func serveRun(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	logger := newLogger()

	pf := pidFile()
	if err := pf.Acquire(os.Getpid()); err != nil {
		return err
	}
	defer func() { _ = pf.Release(os.Getpid()) }()

	srv, err := newAPIServer(ctx, logger)
	if err != nil {
		return err
	}

	port := viper.GetInt("port")
	ui.Info("Serving API at http://localhost:%d/api/v1", port)
	return api.Run(ctx, logger, api.ServeConfig{Addr: fmt.Sprintf(":%d", port)}, srv.Handler())
}

// serveStartRun re-executes the binary detached, logging to serveLogPath.
func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return &daemon.AlreadyRunningError{PID: pid}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}

	args := []string{"serve", "--port", strconv.Itoa(viper.GetInt("port"))}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	if dryRun {
		ui.DryRunMsg("Would start: %s %v", exe, args)
		return nil
	}

	logPath := serveLogPath()
	if err := os.MkdirAll(viper.GetString("state_dir"), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if err := pf.WritePID(child.Process.Pid); err != nil {
		return err
	}
	_ = child.Process.Release()

	ui.Success("Server started (pid %d) on port %d", child.Process.Pid, viper.GetInt("port"))
	ui.Info("Logs: %s", logPath)
	return nil
}

func serveStatusRun() error {
	pid, running := pidFile().IsRunning()
	if !running {
		ui.Info("Server is not running")
		return nil
	}
	ui.Success("Server is running (pid %d)", pid)
	ui.Info("Logs: %s", serveLogPath())
	return nil
}

func serveStopRun() error {
	pid, err := pidFile().Stop(serveStopTimeout)
	if err != nil {
		return err
	}
	ui.Success("Stopped server (pid %d)", pid)
	return nil
}
