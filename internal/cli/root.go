// Package cli implements the tripplan CLI commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/tripplan/internal/apperr"
	"github.com/rcliao/tripplan/internal/config"
	"github.com/rcliao/tripplan/internal/gateway"
	"github.com/rcliao/tripplan/internal/logging"
	"github.com/rcliao/tripplan/internal/session"
	"github.com/rcliao/tripplan/internal/store"
	"github.com/rcliao/tripplan/internal/workbench"
)

var (
	dbPath     string
	apiURL     string
	configPath string
	formatFlag string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "tripplan",
	Short: "Plan trips with generated day-by-day itineraries",
	Long:  "A CLI for drafting, previewing and saving travel itineraries against a remote itinerary service.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Credential database path (default: $TRIPPLAN_DB or ~/.tripplan/tripplan.db)")
	RootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Service base URL (default: $TRIPPLAN_API_URL or "+config.DefaultAPIURL+")")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $TRIPPLAN_CONFIG or ~/.tripplan/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")
}

var errNotLoggedIn = errors.New("not logged in: run `tripplan login <email>` first")

// app is everything a command needs, wired from configuration.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	creds  *store.SQLiteCredentials
	gw     *gateway.Client
	sess   *session.Manager
	cache  *store.Itineraries
	wb     *workbench.Workbench
}

func openApp() (*app, error) {
	cfg, err := config.Load(config.Overrides{
		ConfigPath: configPath,
		APIURL:     apiURL,
		DBPath:     dbPath,
		Verbose:    verbose,
	})
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return nil, err
	}

	gw, err := gateway.New(gateway.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	creds, err := store.NewSQLiteCredentials(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	return wire(cfg, logger, gw, creds), nil
}

// wire connects the session, cache and workbench. Ending the session always
// signs the workbench out.
func wire(cfg *config.Config, logger *zap.Logger, gw *gateway.Client, creds *store.SQLiteCredentials) *app {
	a := &app{
		cfg:    cfg,
		logger: logger,
		creds:  creds,
		gw:     gw,
		cache:  store.NewItineraries(),
	}
	a.sess = session.NewManager(creds, gw, logger)
	a.wb = workbench.New(gw, a.sess, a.cache, logger)
	a.sess.OnChange(func(s session.Screen) {
		if s != session.ScreenItineraries {
			a.wb.SignOut()
		}
	})
	return a
}

func (a *app) Close() {
	a.wb.Close()
	a.creds.Close()
	_ = a.logger.Sync()
}

// enter restores the session and loads the itinerary list.
func (a *app) enter(ctx context.Context) error {
	screen, err := a.sess.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if screen != session.ScreenItineraries {
		return errNotLoggedIn
	}
	op, err := a.wb.Enter(ctx)
	if err != nil {
		return err
	}
	return a.wb.Wait(ctx, op)
}

// mustApp opens the app or exits.
func mustApp() *app {
	a, err := openApp()
	if err != nil {
		exitErr("startup", err)
	}
	return a
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %s\n", msg, apperr.Message(err))
	os.Exit(1)
}
