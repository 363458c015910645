package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rsjpcal/internal/model"
	"rsjpcal/internal/planner"
)

func eventCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "List and edit the events of a program",
	}
	cmd.AddCommand(eventListCmd(opts))
	cmd.AddCommand(eventAddCmd(opts))
	cmd.AddCommand(eventDeleteCmd(opts))
	return cmd
}

func eventListCmd(opts *rootOptions) *cobra.Command {
	var (
		date     string
		category string
	)
	cmd := &cobra.Command{
		Use:   "list [program-id]",
		Short: "List events in schedule order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			events, err := e.svc.Events(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTIME\tCATEGORY\tTITLE\tLOCATION\tID\tORIGIN")
			fmt.Fprintln(w, "----\t----\t--------\t-----\t--------\t--\t------")
			shown := 0
			for _, ev := range events {
				if date != "" && ev.Date != date {
					continue
				}
				if category != "" && string(ev.Category) != category {
					continue
				}
				shown++
				fmt.Fprintf(w, "%s\t%s-%s\t%s\t%s\t%s\t%s\t%s\n",
					ev.Date, ev.StartTime, ev.EndTime, ev.Category, ev.Title, dash(ev.Location), ev.ID, originLabel(ev))
			}
			if shown == 0 {
				fmt.Fprintln(out, "No events found")
				return nil
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Only show events on this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "Only show events of this category")
	return cmd
}

func originLabel(e model.Event) string {
	switch {
	case e.IsAuto():
		return color.New(color.FgCyan).Sprint("auto")
	case e.Kind == model.KindImport:
		return color.New(color.FgMagenta).Sprintf("import:%s", e.Source)
	default:
		return color.New(color.FgGreen).Sprint("manual")
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func eventAddCmd(opts *rootOptions) *cobra.Command {
	var in eventInput
	cmd := &cobra.Command{
		Use:   "add [program-id]",
		Short: "Add a manual event",
		Long: `Add a manual event. Manual events survive regeneration.
Only one cultural experience is kept per day; adding a second one on the
same date keeps whichever starts first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateInput(in); err != nil {
				return err
			}

			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			ev, res, err := e.svc.AddEvent(cmd.Context(), args[0], in.Event())
			if err != nil {
				return fmt.Errorf("failed to add event: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Added event %s: %s on %s %s-%s\n", ev.ID, ev.Title, ev.Date, ev.StartTime, ev.EndTime)
			if len(res.Dropped) > 0 {
				printResult(out, "Normalized", res)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Date, "date", "", "Event date (YYYY-MM-DD)")
	f.StringVar(&in.Start, "start", "", "Start time (HH:MM)")
	f.StringVar(&in.End, "end", "", "End time (HH:MM)")
	f.StringVar(&in.Category, "category", string(model.CategoryOther), "Event category")
	f.StringVar(&in.Title, "title", "", "Event title")
	f.StringVar(&in.Location, "location", "", "Event location")
	f.IntVar(&in.Headcount, "headcount", 0, "Participants")
	f.IntVar(&in.Buddies, "buddies", 0, "Buddies")
	f.IntVar(&in.StaffCount, "staff", 0, "Staff count (implies staff needed)")
	f.BoolVar(&in.StaffNeeded, "staff-needed", false, "Staff needed")
	f.BoolVar(&in.RoomNeeded, "room-needed", false, "Room booking needed")
	f.BoolVar(&in.Arrangement, "arrangement-needed", false, "Arrangement needed")
	f.StringVar(&in.Transport, "transport", string(model.TransportNone), "Transport: none, bus, walk, on-campus")
	f.StringVar(&in.BusCompany, "bus-company", "", "Bus company")
	f.IntVar(&in.Vehicles, "vehicles", 0, "Number of buses")
	f.StringVar(&in.Trip, "trip", "", "Bus trip: one-way, round-trip")
	f.StringVar(&in.Stops, "stops", "", "Pickup and dropoff points")
	f.StringVar(&in.Notes, "notes", "", "Free text notes")
	return cmd
}

func eventDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [program-id] [event-id]",
		Short: "Delete a manual event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			err = e.svc.DeleteEvent(cmd.Context(), args[0], args[1])
			if errors.Is(err, planner.ErrGeneratedEvent) {
				return fmt.Errorf("%w\nHint: generated events are rebuilt by 'rsjpcal generate'; change the program or add an override instead", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted event %s\n", args[1])
			return nil
		},
	}
}
