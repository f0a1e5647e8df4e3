package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
)

func CreateFraternity(ctx context.Context, database *sql.DB, schoolID uuid.UUID, name string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := database.ExecContext(ctx,
		`INSERT INTO fraternities (id, name, school_id) VALUES ($1, $2, $3)`,
		id, name, schoolID,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func ListFraternities(ctx context.Context, database *sql.DB, schoolID uuid.UUID) ([]models.Fraternity, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT id, name, school_id FROM fraternities WHERE school_id = $1 ORDER BY name`,
		schoolID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Fraternity
	for rows.Next() {
		var f models.Fraternity
		if err := rows.Scan(&f.ID, &f.Name, &f.SchoolID); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func GetFraternityByName(ctx context.Context, database *sql.DB, schoolID uuid.UUID, name string) (*models.Fraternity, error) {
	row := database.QueryRowContext(ctx,
		`SELECT id, name, school_id FROM fraternities WHERE school_id = $1 AND name = $2`,
		schoolID, name,
	)
	var f models.Fraternity
	if err := row.Scan(&f.ID, &f.Name, &f.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}
