package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rsjpcal/internal/model"
)

func overrideCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage per-day lesson overrides",
		Long: `Overrides replace the program's lesson defaults on one date.
Fields that are not given fall back to the defaults one at a time.
Run 'rsjpcal generate' afterwards to rebuild the schedule.`,
	}
	cmd.AddCommand(overrideSetCmd(opts))
	cmd.AddCommand(overrideDeleteCmd(opts))
	return cmd
}

type overrideInput struct {
	Date  string `validate:"required,datetime=2006-01-02"`
	Start string `validate:"omitempty,clock"`
}

func overrideSetCmd(opts *rootOptions) *cobra.Command {
	var (
		noLessons    bool
		start        string
		blockMinutes int
		breakMinutes int
		blocks       int
		classes      int
		classrooms   []string
		teacherRooms []string
	)
	cmd := &cobra.Command{
		Use:   "set [program-id] [date]",
		Short: "Set or replace the lesson override of a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			programID, date := args[0], args[1]
			if err := validateInput(overrideInput{Date: date, Start: start}); err != nil {
				return err
			}

			ov := model.LessonOverride{
				Enabled:      !noLessons,
				StartTime:    start,
				Classrooms:   classrooms,
				TeacherRooms: teacherRooms,
			}
			flags := cmd.Flags()
			if flags.Changed("block-minutes") {
				ov.BlockMinutes = model.IntPtr(blockMinutes)
			}
			if flags.Changed("break-minutes") {
				ov.BreakMinutes = model.IntPtr(breakMinutes)
			}
			if flags.Changed("blocks") {
				ov.BlockCount = model.IntPtr(blocks)
			}
			if flags.Changed("classes") {
				ov.ClassCount = model.IntPtr(classes)
			}

			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if _, err := e.svc.SetOverride(cmd.Context(), programID, date, ov); err != nil {
				return err
			}
			state := "lessons on"
			if noLessons {
				state = "no lessons"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Override set for %s on %s (%s)\n", programID, date, state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noLessons, "no-lessons", false, "Cancel lessons on this date")
	cmd.Flags().StringVar(&start, "start", "", "Lesson start time (HH:MM)")
	cmd.Flags().IntVar(&blockMinutes, "block-minutes", 0, "Length of one lesson block")
	cmd.Flags().IntVar(&breakMinutes, "break-minutes", 0, "Break between blocks")
	cmd.Flags().IntVar(&blocks, "blocks", 0, "Number of lesson blocks (1-3)")
	cmd.Flags().IntVar(&classes, "classes", 0, "Number of parallel classes (1-20)")
	cmd.Flags().StringSliceVar(&classrooms, "classroom", nil, "Classroom per class, in order (repeatable)")
	cmd.Flags().StringSliceVar(&teacherRooms, "teacher-room", nil, "Teacher room per class, in order (repeatable)")
	return cmd
}

func overrideDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [program-id] [date]",
		Short: "Remove the lesson override of a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if _, err := e.svc.DeleteOverride(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Override removed for %s on %s\n", args[0], args[1])
			return nil
		},
	}
}
