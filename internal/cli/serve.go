package cli

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	appLog "rsjpcal/internal/log"
	"rsjpcal/internal/web"
)

func importCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [subscription-id...]",
		Short: "Import configured ICS subscriptions into their programs",
		Long: `Fetch each subscription, expand its events over the program's dates
and replace the events it contributed last time. Without arguments every
configured subscription is imported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			subs, err := subscriptions(e.cfg, args)
			if err != nil {
				return err
			}
			if len(subs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No subscriptions configured")
				return nil
			}

			out := cmd.OutOrStdout()
			var failed int
			for _, sub := range subs {
				res, err := e.svc.Import(cmd.Context(), sub)
				if err != nil {
					failed++
					appLog.Error("import failed", err, "source", sub.ID, "program", sub.ProgramID)
					fmt.Fprintf(out, "%s -> %s: failed: %v\n", sub.ID, sub.ProgramID, err)
					continue
				}
				fmt.Fprintf(out, "%s -> %s: ", sub.ID, sub.ProgramID)
				printResult(out, "Imported into", res)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d subscriptions failed", failed, len(subs))
			}
			return nil
		},
	}
}

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		listen     string
		refreshNow bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve exports over HTTP and refresh subscriptions on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			if listen == "" {
				listen = e.cfg.Listen
			}

			subs, err := subscriptions(e.cfg, nil)
			if err != nil {
				return err
			}
			refresh := func() {
				if err := e.svc.Refresh(ctx, subs); err != nil {
					appLog.Error("refresh finished with errors", err)
					return
				}
				appLog.Info("refresh finished", "subscriptions", len(subs))
			}

			if refreshNow {
				refresh()
			}
			if e.cfg.RefreshEnabled() {
				stop, err := startRefresh(e.cfg.RefreshCron, refresh)
				if err != nil {
					return err
				}
				defer stop()
			} else {
				appLog.Info("scheduled refresh disabled")
			}

			return web.NewServer(e.svc, e.cfg.BasicAuth).Serve(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	cmd.Flags().BoolVar(&refreshNow, "refresh-now", false, "Run one refresh before serving")
	return cmd
}

// startRefresh schedules fn on spec. Runs never overlap. The returned stop
// waits for a running job to finish.
func startRefresh(spec string, fn func()) (func(), error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, fn); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("scheduled refresh", "cron", spec)
	return func() {
		<-c.Stop().Done()
	}, nil
}

