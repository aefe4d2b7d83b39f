package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/absentee"
	"rollcall/internal/config"
	"rollcall/internal/notifications"
	"rollcall/internal/store"
)

func newAbsenteesCommand(ctx *commandContext) *cobra.Command {
	var (
		dateFlag   string
		notifyFlag bool
	)

	cmd := &cobra.Command{
		Use:   "absentees",
		Short: "List registered persons with no attendance on a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				day := time.Now().UTC()
				if dateFlag != "" {
					parsed, err := parseDate(dateFlag)
					if err != nil {
						return err
					}
					day = parsed
				}

				report, err := absentee.ForDay(cmd.Context(), st, day)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, report.Total())
				for _, p := range report.Students {
					rows = append(rows, []string{p.ID, p.Name, string(p.Category), p.Department, p.Phone})
				}
				for _, p := range report.Faculty {
					rows = append(rows, []string{p.ID, p.Name, string(p.Category), p.Department, p.Phone})
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d absent on %s\n", report.Total(), report.Day.Format("2006-01-02"))
				if len(rows) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), renderTable(
						[]string{"ID", "Name", "Category", "Department", "Phone"},
						rows, nil))
				}

				if notifyFlag && report.Total() > 0 {
					service := notifications.NewService(cfg)
					if err := service.NotifyAbsentees(cmd.Context(), report); err != nil {
						return fmt.Errorf("send absentee notification: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Notification sent")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Day to check (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&notifyFlag, "notify", false, "Send the absentee report through configured notifiers")

	return cmd
}
