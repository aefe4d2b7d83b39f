package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rollcall/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var testNotify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running rollcalld daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := ipc.Dial(cfg.SocketPath())
			if err != nil {
				return fmt.Errorf("rollcalld is not running (no socket at %s)", cfg.SocketPath())
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon:    running=%t pid=%d\n", status.Running, status.PID)
			fmt.Fprintf(out, "Database:  %s\n", status.DatabasePath)
			fmt.Fprintf(out, "Lock file: %s\n", status.LockFilePath)
			fmt.Fprintf(out, "Roster:    %d students, %d faculty\n", status.RosterStudents, status.RosterFaculty)
			fmt.Fprintf(out, "Today:     %d attendance records\n", status.TodayRecords)

			if status.TodayRecords > 0 {
				today, err := client.AttendanceToday()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(today.Entries))
				for _, entry := range today.Entries {
					rows = append(rows, []string{
						entry.RecordedAt.UTC().Format("15:04:05"),
						entry.PersonID,
						entry.Name,
						entry.Category,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Time", "ID", "Name", "Category"}, rows, nil))
			}

			if testNotify {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Test notification: sent=%t %s\n", resp.Sent, resp.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&testNotify, "test-notify", false, "Ask the daemon to send a test notification")
	return cmd
}
