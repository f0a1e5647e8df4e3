package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
)

func CreateSchool(ctx context.Context, database *sql.DB, name string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := database.ExecContext(ctx, `INSERT INTO schools (id, name) VALUES ($1, $2)`, id, name)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func GetSchoolByID(ctx context.Context, database *sql.DB, id uuid.UUID) (*models.School, error) {
	row := database.QueryRowContext(ctx, `SELECT id, name FROM schools WHERE id = $1`, id)
	var s models.School
	if err := row.Scan(&s.ID, &s.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func GetSchoolByName(ctx context.Context, database *sql.DB, name string) (*models.School, error) {
	row := database.QueryRowContext(ctx, `SELECT id, name FROM schools WHERE name = $1`, name)
	var s models.School
	if err := row.Scan(&s.ID, &s.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func ListSchools(ctx context.Context, database *sql.DB) ([]models.School, error) {
	rows, err := database.QueryContext(ctx, `SELECT id, name FROM schools ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.School
	for rows.Next() {
		var s models.School
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
