package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/config"
	"rollcall/internal/store"
)

func newAttendanceCommand(ctx *commandContext) *cobra.Command {
	attendanceCmd := &cobra.Command{
		Use:   "attendance",
		Short: "Inspect the attendance ledger",
	}

	attendanceCmd.AddCommand(newAttendanceShowCommand(ctx))
	attendanceCmd.AddCommand(newAttendanceExportCommand(ctx))

	return attendanceCmd
}

func newAttendanceShowCommand(ctx *commandContext) *cobra.Command {
	var (
		dateFlag   string
		personFlag string
		fromFlag   string
		toFlag     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show attendance for a day or a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				records, err := collectAttendance(cmd.Context(), st, dateFlag, personFlag, fromFlag, toFlag)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					name := rec.PersonID
					if person, err := st.GetPerson(cmd.Context(), rec.PersonID); err == nil {
						name = person.Name
					}
					rows = append(rows, []string{
						rec.RecordedAt.UTC().Format("2006-01-02 15:04:05"),
						rec.PersonID,
						name,
						string(rec.Category),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Recorded", "ID", "Name", "Category"},
					rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Day to show (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&personFlag, "person", "", "Show a single person over a range")
	cmd.Flags().StringVar(&fromFlag, "from", "", "Range start (YYYY-MM-DD, with --person)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Range end (YYYY-MM-DD, with --person)")

	return cmd
}

func newAttendanceExportCommand(ctx *commandContext) *cobra.Command {
	var (
		fromFlag string
		toFlag   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export attendance records over a date range as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate(fromFlag)
			if err != nil {
				return err
			}
			to, err := parseDate(toFlag)
			if err != nil {
				return err
			}
			if to.Before(from) {
				return fmt.Errorf("--to must not precede --from")
			}

			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				writer := csv.NewWriter(cmd.OutOrStdout())
				if err := writer.Write([]string{"recorded_at", "person_id", "name", "category"}); err != nil {
					return err
				}
				names := map[string]string{}
				for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
					records, err := st.AttendanceForDay(cmd.Context(), day)
					if err != nil {
						return err
					}
					for _, rec := range records {
						name, ok := names[rec.PersonID]
						if !ok {
							if person, err := st.GetPerson(cmd.Context(), rec.PersonID); err == nil {
								name = person.Name
							}
							names[rec.PersonID] = name
						}
						row := []string{
							rec.RecordedAt.UTC().Format(time.RFC3339),
							rec.PersonID,
							name,
							string(rec.Category),
						}
						if err := writer.Write(row); err != nil {
							return err
						}
					}
				}
				writer.Flush()
				return writer.Error()
			})
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "Range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Range end (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func collectAttendance(ctx context.Context, st *store.Store, dateFlag, personFlag, fromFlag, toFlag string) ([]*store.AttendanceRecord, error) {
	if person := strings.TrimSpace(personFlag); person != "" {
		if fromFlag == "" || toFlag == "" {
			return nil, fmt.Errorf("--person requires --from and --to")
		}
		from, err := parseDate(fromFlag)
		if err != nil {
			return nil, err
		}
		to, err := parseDate(toFlag)
		if err != nil {
			return nil, err
		}
		return st.AttendanceForPerson(ctx, person, from, to.AddDate(0, 0, 1))
	}

	day := time.Now().UTC()
	if dateFlag != "" {
		parsed, err := parseDate(dateFlag)
		if err != nil {
			return nil, err
		}
		day = parsed
	}
	return st.AttendanceForDay(ctx, day)
}
