package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/payroll"
	"rollcall/internal/store"
)

func newPayrollCommand(ctx *commandContext) *cobra.Command {
	var (
		fromFlag   string
		toFlag     string
		personFlag string
		csvFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Compute faculty salary statements from attendance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				from, to := defaultPayPeriod(time.Now())
				if fromFlag != "" {
					parsed, err := parseDate(fromFlag)
					if err != nil {
						return err
					}
					from = parsed
				}
				if toFlag != "" {
					parsed, err := parseDate(toFlag)
					if err != nil {
						return err
					}
					to = parsed
				}

				calendar, err := payroll.CalendarFromConfig(cfg)
				if err != nil {
					return err
				}
				engine := payroll.NewEngine(st, calendar, payroll.OptionsFromConfig(cfg), logging.NewNop())

				var statements []payroll.Statement
				if personFlag != "" {
					statement, err := engine.Statement(cmd.Context(), personFlag, from, to)
					if err != nil {
						return err
					}
					statements = []payroll.Statement{statement}
				} else {
					statements, err = engine.Statements(cmd.Context(), from, to)
					if err != nil {
						return err
					}
				}

				if csvFlag {
					return payroll.WriteCSV(cmd.OutOrStdout(), statements)
				}

				rows := make([][]string, 0, len(statements))
				for _, s := range statements {
					rows = append(rows, []string{
						s.PersonID,
						s.Name,
						fmt.Sprintf("%d", s.WorkingDays),
						fmt.Sprintf("%d", s.PresentDays),
						fmt.Sprintf("%d", s.AbsentDays),
						s.Basis,
						fmt.Sprintf("%.2f", s.Salary),
						s.Remarks,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pay period %s to %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Working", "Present", "Absent", "Basis", "Salary", "Remarks"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "Period start (YYYY-MM-DD, default first of this month)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Period end (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&personFlag, "person", "", "Compute a single faculty member")
	cmd.Flags().BoolVar(&csvFlag, "csv", false, "Write CSV instead of a table")

	return cmd
}
