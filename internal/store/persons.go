package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"rollcall/internal/services"
)

// AddPerson registers a new person. Faculty must carry a compensation
// profile; students must not.
func (s *Store) AddPerson(ctx context.Context, person Person) (*Person, error) {
	person.ID = strings.TrimSpace(person.ID)
	person.Name = strings.TrimSpace(person.Name)
	if person.ID == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "add person", "registration id is required", nil)
	}
	if person.Name == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "add person", "name is required", nil)
	}
	if !ValidCategory(person.Category) {
		return nil, services.Wrap(services.ErrValidation, "store", "add person", fmt.Sprintf("unknown category %q", person.Category), nil)
	}
	if person.Category == CategoryFaculty && person.Compensation == nil {
		return nil, services.Wrap(services.ErrValidation, "store", "add person", "faculty requires a compensation profile", nil)
	}
	if person.Category == CategoryStudent && person.Compensation != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "add person", "students do not carry compensation", nil)
	}
	if person.Compensation != nil {
		if err := validateCompensation(person.Compensation); err != nil {
			return nil, err
		}
	}

	if person.CreatedAt.IsZero() {
		person.CreatedAt = time.Now().UTC()
	}

	compKind, monthly, deduction, rate := compensationColumns(person.Compensation)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO persons (id, name, category, department, phone, comp_kind, monthly_salary, per_day_deduction, visiting_rate, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		person.ID,
		person.Name,
		string(person.Category),
		nullableString(person.Department),
		nullableString(person.Phone),
		compKind,
		monthly,
		deduction,
		rate,
		formatTime(person.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, services.Wrap(services.ErrValidation, "store", "add person", fmt.Sprintf("id %s already registered", person.ID), nil)
		}
		return nil, fmt.Errorf("insert person: %w", err)
	}

	s.notifyChange()
	return s.GetPerson(ctx, person.ID)
}

// GetPerson fetches a person by registration id.
func (s *Store) GetPerson(ctx context.Context, id string) (*Person, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE id = ?`, id)
	person, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "person", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return person, nil
}

// ListPersons returns registered persons, optionally filtered by category,
// ordered by registration id.
func (s *Store) ListPersons(ctx context.Context, categories ...Category) ([]*Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons`
	var args []any
	if len(categories) > 0 {
		placeholders := make([]string, len(categories))
		for i, cat := range categories {
			placeholders[i] = "?"
			args = append(args, string(cat))
		}
		query += ` WHERE category IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []*Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, person)
	}
	return persons, rows.Err()
}

// DeletePerson removes a person together with their embeddings and attendance
// records. This is the only path that destroys attendance data.
func (s *Store) DeletePerson(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "person", id, nil)
	}

	s.personLocks.Delete(id)
	s.notifyChange()
	return nil
}

// SaveEmbedding stores one face vector for a person.
func (s *Store) SaveEmbedding(ctx context.Context, personID string, vector []float32, model string) (*FaceEmbedding, error) {
	if len(vector) == 0 {
		return nil, services.Wrap(services.ErrValidation, "store", "save embedding", "empty vector", nil)
	}
	if _, err := s.GetPerson(ctx, personID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO face_embeddings (person_id, vector, dim, model, created_at) VALUES (?, ?, ?, ?, ?)`,
		personID,
		encodeVector(vector),
		len(vector),
		model,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert embedding: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	s.notifyChange()
	return &FaceEmbedding{ID: id, PersonID: personID, Vector: vector, Model: model, CreatedAt: now}, nil
}

// AllEmbeddings returns every stored face vector, the gallery's build input.
func (s *Store) AllEmbeddings(ctx context.Context) ([]*FaceEmbedding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, person_id, vector, dim, model, created_at FROM face_embeddings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []*FaceEmbedding
	for rows.Next() {
		var (
			emb        FaceEmbedding
			blob       []byte
			dim        int
			createdRaw string
		)
		if err := rows.Scan(&emb.ID, &emb.PersonID, &blob, &dim, &emb.Model, &createdRaw); err != nil {
			return nil, err
		}
		vector, err := decodeVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("embedding %d: %w", emb.ID, err)
		}
		emb.Vector = vector
		if created, err := parseTimeString(createdRaw); err == nil {
			emb.CreatedAt = created
		}
		embeddings = append(embeddings, &emb)
	}
	return embeddings, rows.Err()
}

func validateCompensation(profile *CompensationProfile) error {
	switch profile.Kind {
	case CompensationRegular:
		if profile.MonthlySalary < 0 || profile.PerDayDeduction < 0 {
			return services.Wrap(services.ErrValidation, "store", "compensation", "regular amounts must not be negative", nil)
		}
	case CompensationVisitingFixed, CompensationVisitingPerDay:
		if profile.VisitingRate < 0 {
			return services.Wrap(services.ErrValidation, "store", "compensation", "visiting rate must not be negative", nil)
		}
	default:
		return services.Wrap(services.ErrValidation, "store", "compensation", fmt.Sprintf("unknown kind %q", profile.Kind), nil)
	}
	return nil
}

func compensationColumns(profile *CompensationProfile) (kind any, monthly any, deduction any, rate any) {
	if profile == nil {
		return nil, nil, nil, nil
	}
	switch profile.Kind {
	case CompensationRegular:
		return string(profile.Kind), profile.MonthlySalary, profile.PerDayDeduction, nil
	default:
		return string(profile.Kind), nil, nil, profile.VisitingRate
	}
}

const personColumns = "id, name, category, department, phone, comp_kind, monthly_salary, per_day_deduction, visiting_rate, created_at"

func scanPerson(scanner interface{ Scan(dest ...any) error }) (*Person, error) {
	var (
		id         string
		name       string
		category   string
		department sql.NullString
		phone      sql.NullString
		compKind   sql.NullString
		monthly    sql.NullFloat64
		deduction  sql.NullFloat64
		rate       sql.NullFloat64
		createdRaw string
	)

	if err := scanner.Scan(&id, &name, &category, &department, &phone, &compKind, &monthly, &deduction, &rate, &createdRaw); err != nil {
		return nil, err
	}

	person := &Person{
		ID:         id,
		Name:       name,
		Category:   Category(category),
		Department: department.String,
		Phone:      phone.String,
	}
	if compKind.Valid {
		profile := &CompensationProfile{Kind: CompensationKind(compKind.String)}
		switch profile.Kind {
		case CompensationRegular:
			profile.MonthlySalary = monthly.Float64
			profile.PerDayDeduction = deduction.Float64
		default:
			profile.VisitingRate = rate.Float64
		}
		person.Compensation = profile
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		person.CreatedAt = created
	}
	return person, nil
}

func encodeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dim int) ([]float32, error) {
	if len(blob) != dim*4 {
		return nil, fmt.Errorf("vector blob has %d bytes, expected %d", len(blob), dim*4)
	}
	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
