package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/tripplan/internal/config"
	"github.com/rcliao/tripplan/internal/fakeapi"
	"github.com/rcliao/tripplan/internal/logging"
)

func init() {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory itinerary service for local use",
		Long:  "Serve the itinerary API from memory with deterministic generation. Data is lost on exit.",
		Run:   runDevserver,
	}

	cmd.Flags().String("addr", "localhost:8000", "Listen address")
	cmd.Flags().StringArray("user", nil, "Seed a user as email:password (repeatable)")
	cmd.Flags().String("secret", "", "Token signing key (default: $TRIPPLAN_DEV_SECRET or a built-in key)")
	cmd.Flags().Duration("token-ttl", 24*time.Hour, "Access token lifetime")

	RootCmd.AddCommand(cmd)
}

func runDevserver(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	users, _ := cmd.Flags().GetStringArray("user")
	secret, _ := cmd.Flags().GetString("secret")
	ttl, _ := cmd.Flags().GetDuration("token-ttl")

	cfg, err := config.Load(config.Overrides{ConfigPath: configPath, Verbose: verbose})
	if err != nil {
		exitErr("devserver", err)
	}
	// Startup and shutdown log at info; show them unless a level was configured.
	level := cfg.LogLevel
	if level == config.DefaultLogLevel {
		level = "info"
	}
	logger, err := logging.New(level, cfg.LogDev)
	if err != nil {
		exitErr("devserver", err)
	}
	defer logger.Sync()

	if secret == "" {
		secret = os.Getenv("TRIPPLAN_DEV_SECRET")
	}
	opts := []fakeapi.Option{fakeapi.WithLogger(logger), fakeapi.WithTokenTTL(ttl)}
	if secret != "" {
		opts = append(opts, fakeapi.WithSecret([]byte(secret)))
	}
	api := fakeapi.New(opts...)
	for _, u := range users {
		email, password, ok := strings.Cut(u, ":")
		if !ok || email == "" || password == "" {
			exitErr("devserver", errors.New("--user must be email:password"))
		}
		api.AddUser(email, password)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("devserver listening", zap.String("addr", addr), zap.Int("users", len(users)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			exitErr("devserver", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			exitErr("devserver", err)
		}
	}
}
