package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
)

const teacherColumns = `id, email, given_names, family_names, role, subject, area, grades, fraternity_id, school_id`

func scanTeacher(row interface{ Scan(...any) error }) (models.Teacher, error) {
	var t models.Teacher
	err := row.Scan(&t.ID, &t.Email, &t.GivenNames, &t.FamilyNames, &t.Role,
		&t.Subject, &t.Area, &t.Grades, &t.FraternityID, &t.SchoolID)
	return t, err
}

func CreateTeacher(ctx context.Context, database *sql.DB, t models.Teacher) (uuid.UUID, error) {
	id := uuid.New()
	_, err := database.ExecContext(ctx, `
		INSERT INTO teachers (id, email, given_names, family_names, role, subject, area, grades, fraternity_id, school_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, strings.ToLower(strings.TrimSpace(t.Email)), t.GivenNames, t.FamilyNames,
		string(t.Role), t.Subject, t.Area, t.Grades, t.FraternityID, t.SchoolID,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetTeacherByEmail is the profile lookup the auth collaborator uses to turn
// a session email into an Actor.
func GetTeacherByEmail(ctx context.Context, database *sql.DB, email string) (*models.Teacher, error) {
	row := database.QueryRowContext(ctx,
		`SELECT `+teacherColumns+` FROM teachers WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	)
	t, err := scanTeacher(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func GetTeacherByID(ctx context.Context, database *sql.DB, id uuid.UUID) (*models.Teacher, error) {
	row := database.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id)
	t, err := scanTeacher(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func ListTeachers(ctx context.Context, database *sql.DB, schoolID uuid.UUID) ([]models.Teacher, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT `+teacherColumns+` FROM teachers WHERE school_id = $1 ORDER BY family_names, given_names`,
		schoolID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Teacher
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
