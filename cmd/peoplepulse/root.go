package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"peoplepulse/internal/calendar"
	"peoplepulse/internal/config"
	"peoplepulse/internal/ics"
	appLog "peoplepulse/internal/log"
	"peoplepulse/internal/refresh"
)

const version = "0.1.0"

type rootOptions struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "peoplepulse",
		Short:         "PeoplePulse calendar service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "/etc/peoplepulse/config.yaml", "Path to config file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env", ".env.local"}, ".env files to load when present")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides config)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newOccurrencesCmd(opts))
	cmd.AddCommand(newGridCmd(opts))
	return cmd
}

// runtime is what every subcommand needs: the effective config and a store
// filled from the configured sources.
type runtime struct {
	cfg       *config.Config
	loc       *time.Location
	store     *calendar.Store
	refresher *refresh.Refresher
}

func (o *rootOptions) load(ctx context.Context) (*runtime, error) {
	if _, err := config.LoadEnvFiles(o.envFiles...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", o.configPath)
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := appLog.Configure(cfg.Environment, appLog.Level(cfg.LogLevel)); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		loc = time.Local
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"week_start", cfg.WeekStart,
		"max_occurrences", cfg.MaxOccurrences,
		"refresh", cfg.RefreshCron,
		"dataset", cfg.Dataset,
		"ics_count", len(cfg.ICS),
	)

	store := calendar.NewStore()
	r := refresh.New(store, ics.NewFetcher(cfg.CacheDir, nil), refresh.Options{
		Sources:  cfg.Sources(),
		Dataset:  cfg.Dataset,
		ViewerID: cfg.ViewerID,
		Location: loc,
	})
	if err := r.RefreshOnce(ctx); err != nil {
		// Partial data is still useful; keep going.
		appLog.Warn("initial refresh finished with errors", "error", err.Error())
	}

	return &runtime{cfg: cfg, loc: loc, store: store, refresher: r}, nil
}

// parseDay parses YYYY-MM-DD in loc; empty means today.
func parseDay(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return calendar.StartOfDay(time.Now().In(loc)), nil
	}
	return time.ParseInLocation("2006-01-02", raw, loc)
}
