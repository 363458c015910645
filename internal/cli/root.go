// Package cli is the rsjpcal command tree.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rsjpcal/internal/config"
	"rsjpcal/internal/export"
	"rsjpcal/internal/ics"
	appLog "rsjpcal/internal/log"
	"rsjpcal/internal/model"
	"rsjpcal/internal/planner"
	"rsjpcal/internal/store"
	"rsjpcal/internal/vocab"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "rsjpcal.yaml"

type rootOptions struct {
	configPath string
	debug      bool
	noColor    bool
}

// NewRootCmd builds the full command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:     "rsjpcal",
		Short:   "Schedule planner for short-term exchange programs",
		Version: version,
		Long: `rsjpcal generates the day-by-day itinerary of an exchange program
(arrival, lessons, closing ceremony), keeps manually added events and
exports the schedule as CSV, an ICS feed or a printable month grid.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.debug {
				appLog.SetLevel(appLog.LevelDebug)
			}
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", DefaultConfigPath, "Path to config file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")

	root.AddCommand(programCmd(opts))
	root.AddCommand(overrideCmd(opts))
	root.AddCommand(eventCmd(opts))
	root.AddCommand(generateCmd(opts))
	root.AddCommand(exportCmd(opts))
	root.AddCommand(importCmd(opts))
	root.AddCommand(serveCmd(opts))

	return root
}

// env is everything a command needs once the config is loaded.
type env struct {
	cfg   *config.Config
	store *store.Store
	svc   *planner.Service
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		appLog.Error("failed to close store", err)
	}
}

// openEnv loads the config and opens the store. Relative paths in the
// config resolve against the config file's directory.
func openEnv(opts *rootOptions) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(opts.configPath)

	st, err := store.Open(resolvePath(base, cfg.Database))
	if err != nil {
		return nil, err
	}

	svc := planner.New(st, planner.Options{
		Importer: &ics.Importer{
			Fetcher:  ics.NewFetcher(resolvePath(base, cfg.FeedCacheDir)),
			Location: cfg.Timezone.Location(),
		},
		Exports: exportOptions(cfg),
	})

	appLog.Debug("environment ready",
		"config", opts.configPath,
		"database", cfg.Database,
		"tzid", cfg.Timezone.TZID,
		"subscriptions", len(cfg.Subscriptions),
	)
	return &env{cfg: cfg, store: st, svc: svc}, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || p == ":memory:" {
		return p
	}
	return filepath.Join(base, p)
}

func exportOptions(cfg *config.Config) planner.ExportOptions {
	return planner.ExportOptions{
		Lang: vocab.ParseLang(cfg.Language),
		Feed: ics.FeedOptions{
			TZID:          cfg.Timezone.TZID,
			OffsetMinutes: cfg.Timezone.OffsetMinutes,
			ProductID:     cfg.Feed.ProductID,
			UIDDomain:     cfg.Feed.UIDDomain,
		},
		Grid: export.GridOptions{
			SundayFirst:     cfg.WeekStart == "sunday",
			MaxEventsPerDay: cfg.Grid.MaxEventsPerDay,
		},
	}
}

// subscriptions converts the configured feeds, optionally restricted to ids.
func subscriptions(cfg *config.Config, ids []string) ([]ics.Subscription, error) {
	var out []ics.Subscription
	if len(ids) == 0 {
		for _, s := range cfg.Subscriptions {
			out = append(out, toSubscription(s))
		}
		return out, nil
	}
	for _, id := range ids {
		s, ok := cfg.Subscription(id)
		if !ok {
			return nil, fmt.Errorf("unknown subscription %q", id)
		}
		out = append(out, toSubscription(s))
	}
	return out, nil
}

func toSubscription(s config.SubscriptionConfig) ics.Subscription {
	return ics.Subscription{
		ID:        s.ID,
		Name:      s.Name,
		URL:       s.URL,
		ProgramID: s.ProgramID,
		Category:  model.Category(s.Category),
	}
}
