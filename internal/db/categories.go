package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
)

func CreateCategory(ctx context.Context, database *sql.DB, schoolID uuid.UUID, name string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := database.ExecContext(ctx,
		`INSERT INTO categories (id, name, school_id) VALUES ($1, $2, $3)`,
		id, name, schoolID,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ListCategories returns the school's configured award dimensions, ordered by
// name. An empty result is valid: the school simply has nothing to award yet.
func ListCategories(ctx context.Context, database *sql.DB, schoolID uuid.UUID) ([]models.Category, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT id, name, school_id FROM categories WHERE school_id = $1 ORDER BY name`,
		schoolID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SchoolID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func GetCategoryByName(ctx context.Context, database *sql.DB, schoolID uuid.UUID, name string) (*models.Category, error) {
	row := database.QueryRowContext(ctx,
		`SELECT id, name, school_id FROM categories WHERE school_id = $1 AND name = $2`,
		schoolID, name,
	)
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func RenameCategory(ctx context.Context, database *sql.DB, id uuid.UUID, name string) error {
	res, err := database.ExecContext(ctx,
		`UPDATE categories SET name = $1 WHERE id = $2`,
		name, id,
	)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return errors.New("category not found")
	}
	return nil
}
