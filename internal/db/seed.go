package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
)

// DefaultCategories are the award dimensions the legacy roster shipped with.
var DefaultCategories = []string{
	"Marca LCB",
	"Respeto",
	"Solidaridad",
	"Honestidad",
	"Gratitud",
	"Corresponsabilidad",
}

var defaultFraternities = []string{"Amistad", "Fortaleza", "Lealtad", "Sabiduría"}

// SeedDemoSchool creates a demo school with the default categories, four
// fraternities and a handful of students per grade. Safe to call repeatedly.
func SeedDemoSchool(ctx context.Context, database *sql.DB, name string) (uuid.UUID, error) {
	existing, err := GetSchoolByName(ctx, database, name)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	schoolID, err := CreateSchool(ctx, database, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("seed school: %w", err)
	}

	for _, c := range DefaultCategories {
		if _, err := CreateCategory(ctx, database, schoolID, c); err != nil {
			return uuid.Nil, fmt.Errorf("seed category %s: %w", c, err)
		}
	}

	fratIDs := make([]uuid.UUID, 0, len(defaultFraternities))
	for _, f := range defaultFraternities {
		id, err := CreateFraternity(ctx, database, schoolID, f)
		if err != nil {
			return uuid.Nil, fmt.Errorf("seed fraternity %s: %w", f, err)
		}
		fratIDs = append(fratIDs, id)
	}

	n := 0
	for grade := 6; grade <= 11; grade++ {
		for _, section := range []string{"A", "B"} {
			for i := 1; i <= 5; i++ {
				n++
				frat := fratIDs[n%len(fratIDs)]
				s := models.Student{
					Code:         fmt.Sprintf("EST-%04d", n),
					GivenName:    fmt.Sprintf("Estudiante %d", n),
					FamilyName:   fmt.Sprintf("Demo %d%s", grade, section),
					Grade:        fmt.Sprintf("%d%s", grade, section),
					FraternityID: &frat,
					SchoolID:     schoolID,
				}
				if _, err := CreateStudent(ctx, database, s); err != nil {
					return uuid.Nil, fmt.Errorf("seed student %s: %w", s.Code, err)
				}
			}
		}
	}

	_, err = CreateTeacher(ctx, database, models.Teacher{
		Email:       "director@demo.edu.co",
		GivenNames:  "Dirección",
		FamilyNames: "Demo",
		Role:        models.RoleDirector,
		SchoolID:    schoolID,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("seed director: %w", err)
	}
	return schoolID, nil
}
