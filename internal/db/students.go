package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
)

const studentColumns = `id, code, given_name, family_name, grade, fraternity_id, school_id`

func scanStudent(row interface{ Scan(...any) error }) (models.Student, error) {
	var s models.Student
	err := row.Scan(&s.ID, &s.Code, &s.GivenName, &s.FamilyName, &s.Grade, &s.FraternityID, &s.SchoolID)
	return s, err
}

func CreateStudent(ctx context.Context, database *sql.DB, s models.Student) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO students (code, given_name, family_name, grade, fraternity_id, school_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		s.Code, s.GivenName, s.FamilyName, s.Grade, s.FraternityID, s.SchoolID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func GetStudentByID(ctx context.Context, database *sql.DB, schoolID uuid.UUID, id int64) (*models.Student, error) {
	row := database.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1 AND school_id = $2`,
		id, schoolID,
	)
	s, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// UpdateStudent rewrites the editable fields of a student record in place.
// The school scope is part of the WHERE clause, not trusted from the struct.
func UpdateStudent(ctx context.Context, database *sql.DB, schoolID uuid.UUID, s models.Student) error {
	res, err := database.ExecContext(ctx, `
		UPDATE students
		SET code = $1, given_name = $2, family_name = $3, grade = $4, fraternity_id = $5
		WHERE id = $6 AND school_id = $7`,
		strings.TrimSpace(s.Code),
		strings.TrimSpace(s.GivenName),
		strings.TrimSpace(s.FamilyName),
		strings.TrimSpace(s.Grade),
		s.FraternityID,
		s.ID, schoolID,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return errors.New("student not found")
	}
	return nil
}

func ListStudents(ctx context.Context, database *sql.DB, schoolID uuid.UUID) ([]models.Student, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE school_id = $1 ORDER BY family_name, given_name`,
		schoolID,
	)
	if err != nil {
		return nil, err
	}
	return collectStudents(rows)
}

// SearchStudents matches a case-insensitive substring against code, given
// name or family name (OR across the three fields).
func SearchStudents(ctx context.Context, database *sql.DB, schoolID uuid.UUID, query string) ([]models.Student, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := database.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE school_id = $1
		  AND (code ILIKE $2 OR given_name ILIKE $2 OR family_name ILIKE $2)
		ORDER BY family_name, given_name`,
		schoolID, pattern,
	)
	if err != nil {
		return nil, err
	}
	return collectStudents(rows)
}

func ListStudentsByGrade(ctx context.Context, database *sql.DB, schoolID uuid.UUID, grade string) ([]models.Student, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE school_id = $1 AND grade = $2 ORDER BY family_name, given_name`,
		schoolID, grade,
	)
	if err != nil {
		return nil, err
	}
	return collectStudents(rows)
}

func ListGradeLabels(ctx context.Context, database *sql.DB, schoolID uuid.UUID) ([]string, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT DISTINCT grade FROM students WHERE school_id = $1 AND grade <> ''`,
		schoolID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func collectStudents(rows *sql.Rows) ([]models.Student, error) {
	defer func() { _ = rows.Close() }()
	var out []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
