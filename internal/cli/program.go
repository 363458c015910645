package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rsjpcal/internal/model"
	"rsjpcal/internal/planner"
)

func programCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "program",
		Short: "Manage program configurations",
	}
	cmd.AddCommand(programApplyCmd(opts))
	cmd.AddCommand(programShowCmd(opts))
	cmd.AddCommand(programListCmd(opts))
	cmd.AddCommand(programDeleteCmd(opts))
	return cmd
}

func programApplyCmd(opts *rootOptions) *cobra.Command {
	var (
		file       string
		regenerate bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or replace a program from a YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProgram(file)
			if err != nil {
				return err
			}

			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			saved, err := e.svc.ApplyProgram(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("failed to apply program: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Applied program %s (%s to %s)\n", saved.ID, saved.StartDate, saved.EndDate)

			if !regenerate {
				return nil
			}
			res, err := e.svc.Regenerate(cmd.Context(), saved.ID)
			if err != nil {
				return fmt.Errorf("failed to regenerate: %w", err)
			}
			printResult(out, "Generated", res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Program YAML file (- for stdin)")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Regenerate the schedule after applying")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readProgram(path string) (model.Program, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.Program{}, fmt.Errorf("read program %s: %w", path, err)
	}

	var p model.Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Program{}, fmt.Errorf("parse program %s: %w", path, err)
	}
	return p, nil
}

func programShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [program-id]",
		Short: "Print a stored program as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.svc.Program(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(p); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func programListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			programs, err := e.svc.Programs(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(programs) == 0 {
				fmt.Fprintln(out, "No programs found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tSTART\tEND\tOVERRIDES")
			fmt.Fprintln(w, "--\t----\t----\t-----\t---\t---------")
			for _, p := range programs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Kind, p.StartDate, p.EndDate, len(p.Overrides))
			}
			return w.Flush()
		},
	}
}

func programDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [program-id]",
		Short: "Delete a program and all of its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.svc.DeleteProgram(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted program %s\n", args[0])
			return nil
		},
	}
}

// printResult reports the event count and anything normalization dropped.
func printResult(out io.Writer, verb string, res planner.Result) {
	fmt.Fprintf(out, "✓ %s schedule: %d events\n", verb, len(res.Events))
	warn := color.New(color.FgYellow)
	for _, d := range res.Dropped {
		warn.Fprintf(out, "  ! dropped %q on %s (%s", d.Event.Title, d.Event.Date, d.Reason)
		if d.KeptID != "" {
			warn.Fprintf(out, ", kept %s", d.KeptID)
		}
		warn.Fprintln(out, ")")
	}
}
