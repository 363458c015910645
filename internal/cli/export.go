package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rsjpcal/internal/capture"
	"rsjpcal/internal/config"
	"rsjpcal/internal/vocab"
)

func exportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a program's schedule",
	}
	cmd.AddCommand(exportCSVCmd(opts))
	cmd.AddCommand(exportICSCmd(opts))
	cmd.AddCommand(exportGridCmd(opts))
	return cmd
}

func exportCSVCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "csv [program-id]",
		Short: "Write the schedule as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			return writeTo(cmd, output, func(w io.Writer) error {
				return e.svc.ExportCSV(cmd.Context(), args[0], w)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func exportICSCmd(opts *rootOptions) *cobra.Command {
	var output, lang string
	cmd := &cobra.Command{
		Use:   "ics [program-id]",
		Short: "Write the schedule as an iCalendar feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			return writeTo(cmd, output, func(w io.Writer) error {
				return e.svc.ExportFeed(cmd.Context(), args[0], flagLang(lang), w)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&lang, "lang", "", "Export language: en or ja (default from config)")
	return cmd
}

func exportGridCmd(opts *rootOptions) *cobra.Command {
	var output, lang, pdfPath, pngPath string
	cmd := &cobra.Command{
		Use:   "grid [program-id]",
		Short: "Write the printable month grid",
		Long: `Write the month grid as a self-contained HTML document. With --pdf or
--png the document is also rendered through headless Chromium.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			var buf bytes.Buffer
			if err := e.svc.ExportGrid(cmd.Context(), args[0], flagLang(lang), &buf); err != nil {
				return err
			}

			if pdfPath != "" {
				if err := capture.PrintPDF(cmd.Context(), buf.Bytes(), pdfPath, captureOptions(e.cfg)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", pdfPath)
			}
			if pngPath != "" {
				if err := capture.CapturePNG(cmd.Context(), buf.Bytes(), pngPath, captureOptions(e.cfg)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", pngPath)
			}
			if (pdfPath != "" || pngPath != "") && output == "" {
				return nil
			}
			return writeTo(cmd, output, func(w io.Writer) error {
				_, err := w.Write(buf.Bytes())
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "HTML output file (default stdout)")
	cmd.Flags().StringVar(&lang, "lang", "", "Export language: en or ja (default from config)")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Also print the grid to this PDF file")
	cmd.Flags().StringVar(&pngPath, "png", "", "Also capture a PNG preview to this file")
	return cmd
}

func captureOptions(cfg *config.Config) capture.Options {
	return capture.Options{Timeout: time.Duration(cfg.Chromium.TimeoutSeconds) * time.Second}
}

func flagLang(s string) vocab.Lang {
	if s == "" {
		return ""
	}
	return vocab.ParseLang(s)
}

// writeTo renders into memory, then writes stdout or atomically replaces
// path.
func writeTo(cmd *cobra.Command, path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := config.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s (%d bytes)\n", path, buf.Len())
	return nil
}

func generateCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "generate [program-id...]",
		Short: "Regenerate automatic events and save the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("no program given\nHint: pass program ids or --all")
			}

			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			ids := args
			if all {
				programs, err := e.svc.Programs(cmd.Context())
				if err != nil {
					return err
				}
				ids = make([]string, 0, len(programs))
				for _, p := range programs {
					ids = append(ids, p.ID)
				}
			}
			return regenerateAll(cmd.Context(), cmd.OutOrStdout(), e, ids)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Regenerate every stored program")
	return cmd
}

func regenerateAll(ctx context.Context, out io.Writer, e *env, ids []string) error {
	for _, id := range ids {
		res, err := e.svc.Regenerate(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to regenerate %s: %w", id, err)
		}
		fmt.Fprintf(out, "%s: ", id)
		printResult(out, "Generated", res)
	}
	return nil
}
