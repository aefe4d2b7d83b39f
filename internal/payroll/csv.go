package payroll

import (
	"encoding/csv"
	"io"
	"strconv"

	"rollcall/internal/services"
)

// WriteCSV renders statements as CSV with a header row, the on-disk export
// format used by the attendance CLI.
func WriteCSV(w io.Writer, statements []Statement) error {
	cw := csv.NewWriter(w)
	header := []string{"person_id", "name", "from", "to", "working_days", "present_days", "absent_days", "basis", "salary", "remarks"}
	if err := cw.Write(header); err != nil {
		return services.Wrap(services.ErrValidation, "payroll", "export", "write header", err)
	}
	for _, s := range statements {
		row := []string{
			s.PersonID,
			s.Name,
			s.From.Format("2006-01-02"),
			s.To.Format("2006-01-02"),
			strconv.Itoa(s.WorkingDays),
			strconv.Itoa(s.PresentDays),
			strconv.Itoa(s.AbsentDays),
			string(s.Basis),
			strconv.FormatFloat(s.Salary, 'f', 2, 64),
			s.Remarks,
		}
		if err := cw.Write(row); err != nil {
			return services.Wrap(services.ErrValidation, "payroll", "export", "write row", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
