package payroll

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"rollcall/internal/logging"
	"rollcall/internal/store"
)

// Engine computes payroll statements from the attendance ledger.
type Engine struct {
	store    *store.Store
	calendar Calendar
	opts     Options
	logger   *slog.Logger
}

// NewEngine wires a payroll engine over the store. A nil logger disables
// logging.
func NewEngine(st *store.Store, cal Calendar, opts Options, logger *slog.Logger) *Engine {
	if cal == nil {
		cal = AllDays
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{store: st, calendar: cal, opts: opts, logger: logger}
}

// Statement computes the statement for one faculty member by id.
func (e *Engine) Statement(ctx context.Context, personID string, from, to time.Time) (Statement, error) {
	person, err := e.store.GetPerson(ctx, personID)
	if err != nil {
		return Statement{}, err
	}
	return e.statementFor(ctx, person, from, to)
}

// Statements computes statements for every registered faculty member over
// the range, ordered by display name.
func (e *Engine) Statements(ctx context.Context, from, to time.Time) ([]Statement, error) {
	faculty, err := e.store.ListPersons(ctx, store.CategoryFaculty)
	if err != nil {
		return nil, err
	}

	statements := make([]Statement, 0, len(faculty))
	for _, person := range faculty {
		stmt, err := e.statementFor(ctx, person, from, to)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	coll := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(statements, func(i, j int) bool {
		if c := coll.CompareString(statements[i].Name, statements[j].Name); c != 0 {
			return c < 0
		}
		return statements[i].PersonID < statements[j].PersonID
	})
	return statements, nil
}

func (e *Engine) statementFor(ctx context.Context, person *store.Person, from, to time.Time) (Statement, error) {
	// Pull one extra day on each side so timezone-shifted timestamps still
	// land in the right calendar day after normalization.
	records, err := e.store.AttendanceForPerson(ctx, person.ID, dayStart(from).AddDate(0, 0, -1), dayStart(to).AddDate(0, 0, 2))
	if err != nil {
		return Statement{}, err
	}
	stmt, err := Calculate(person, from, to, e.calendar, records, e.opts)
	if err != nil {
		return Statement{}, err
	}
	e.logger.Debug("statement computed",
		logging.String(logging.FieldPersonID, person.ID),
		logging.Int("present_days", stmt.PresentDays),
		logging.Int("absent_days", stmt.AbsentDays),
		logging.Float64("salary", stmt.Salary))
	return stmt, nil
}
