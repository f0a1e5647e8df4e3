// Package importer is the one-time adapter that loads the legacy roster CSV
// (semicolon-separated, Latin-1) into validated student records plus one
// opening-balance point event per nonzero category cell. It is never a
// runtime dependency of the ledger.
package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/db"
	"github.com/lcb-colegios/hogwarts-points/internal/ledger"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

type Row struct {
	Code       string `validate:"required"`
	GivenName  string `validate:"required"`
	FamilyName string `validate:"required"`
	Fraternity string
	Grade      string
	Points     map[string]int
}

type RowError struct {
	Line int
	Err  error
}

type Summary struct {
	Students int
	Events   int
	Skipped  []RowError
}

var validate = validator.New()

// ParseRoster reads the legacy CSV shape: Código;Nombre;Apellidos;Fraternidad
// (plus optional Grado and one column per category). Header spellings vary
// across exports, so headers are normalized before matching. Unknown columns
// are ignored; bad rows are reported, not fatal.
func ParseRoster(r io.Reader, categories []string) ([]Row, []RowError, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	catByNorm := make(map[string]string, len(categories))
	for _, c := range categories {
		catByNorm[normalizeHeader(c)] = c
	}

	type colKind struct {
		field    string // code|given|family|fraternity|grade|category
		category string
	}
	cols := make([]colKind, len(header))
	for i, h := range header {
		switch n := normalizeHeader(h); n {
		case "codigo", "cod":
			cols[i] = colKind{field: "code"}
		case "nombre", "nombres":
			cols[i] = colKind{field: "given"}
		case "apellidos":
			cols[i] = colKind{field: "family"}
		case "fraternidad":
			cols[i] = colKind{field: "fraternity"}
		case "grado":
			cols[i] = colKind{field: "grade"}
		default:
			if cat, ok := catByNorm[n]; ok {
				cols[i] = colKind{field: "category", category: cat}
			}
		}
	}

	var rows []Row
	var bad []RowError
	line := 1
	for {
		rec, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			bad = append(bad, RowError{Line: line, Err: err})
			continue
		}

		row := Row{Points: map[string]int{}}
		for i, v := range rec {
			if i >= len(cols) {
				break
			}
			v = strings.TrimSpace(v)
			switch cols[i].field {
			case "code":
				row.Code = v
			case "given":
				row.GivenName = v
			case "family":
				row.FamilyName = v
			case "fraternity":
				row.Fraternity = v
			case "grade":
				row.Grade = v
			case "category":
				if v == "" {
					continue
				}
				n, err := strconv.Atoi(v)
				if err != nil {
					// Spreadsheet noise in a points cell counts as zero.
					continue
				}
				if n != 0 {
					row.Points[cols[i].category] = n
				}
			}
		}

		if err := validate.Struct(row); err != nil {
			bad = append(bad, RowError{Line: line, Err: err})
			continue
		}
		rows = append(rows, row)
	}
	return rows, bad, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	repl := strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")
	return repl.Replace(h)
}

type Importer struct {
	db     *sql.DB
	ledger *ledger.Store
	log    *zap.Logger
}

func New(database *sql.DB, store *ledger.Store, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{db: database, ledger: store, log: log}
}

// Run parses the roster and inserts students and their opening balances into
// one school. Opening-balance events go through the ledger unattributed, so
// the usual scope checks and cache invalidation apply.
func (im *Importer) Run(ctx context.Context, schoolID uuid.UUID, r io.Reader) (Summary, error) {
	cats, err := db.ListCategories(ctx, im.db, schoolID)
	if err != nil {
		return Summary{}, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}

	rows, bad, err := ParseRoster(r, names)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Skipped: bad}

	frats, err := db.ListFraternities(ctx, im.db, schoolID)
	if err != nil {
		return Summary{}, err
	}
	fratByName := make(map[string]uuid.UUID, len(frats))
	for _, f := range frats {
		fratByName[f.Name] = f.ID
	}

	actor := models.Actor{SchoolID: schoolID} // unattributed opening balances

	for _, row := range rows {
		s := models.Student{
			Code:       row.Code,
			GivenName:  row.GivenName,
			FamilyName: row.FamilyName,
			Grade:      row.Grade,
			SchoolID:   schoolID,
		}
		if id, ok := fratByName[row.Fraternity]; ok {
			fid := id
			s.FraternityID = &fid
		}
		studentID, err := db.CreateStudent(ctx, im.db, s)
		if err != nil {
			im.log.Warn("roster row not imported", zap.String("code", row.Code), zap.Error(err))
			sum.Skipped = append(sum.Skipped, RowError{Err: fmt.Errorf("student %s: %w", row.Code, err)})
			continue
		}
		sum.Students++

		for cat, pts := range row.Points {
			if _, err := im.ledger.RecordEvent(ctx, actor, studentID, cat, pts); err != nil {
				sum.Skipped = append(sum.Skipped, RowError{Err: fmt.Errorf("opening balance %s/%s: %w", row.Code, cat, err)})
				continue
			}
			sum.Events++
		}
	}

	im.log.Info("roster import finished",
		zap.Int("students", sum.Students),
		zap.Int("events", sum.Events),
		zap.Int("skipped", len(sum.Skipped)),
	)
	return sum, nil
}
