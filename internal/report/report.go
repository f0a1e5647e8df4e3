// Package report derives read-only views over the ledger and reference data.
// Every query recomputes from current rows; the only state is a school-keyed
// read cache invalidated by the ledger's write hook.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/cache"
	"github.com/lcb-colegios/hogwarts-points/internal/ctxutil"
	"github.com/lcb-colegios/hogwarts-points/internal/db"
	"github.com/lcb-colegios/hogwarts-points/internal/metrics"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
	"go.uber.org/zap"
)

type CategoryTotal struct {
	Category string
	Points   int
}

type FraternityTotal struct {
	Fraternity string
	Points     int
}

type HistoryEntry struct {
	EventID   int64
	Category  string
	Quantity  int
	Teacher   string
	CreatedAt time.Time
}

type Engine struct {
	db    *sql.DB
	cache *cache.Cache
	log   *zap.Logger
}

func New(database *sql.DB, c *cache.Cache, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{db: database, cache: c, log: log}
}

// StudentCategoryTotals returns the signed sum per category for one student,
// with every category the school configures present (zero-filled), ordered by
// category name. A student outside the actor's school yields an empty slice.
func (e *Engine) StudentCategoryTotals(ctx context.Context, actor models.Actor, studentID int64) ([]CategoryTotal, error) {
	ctx = ctxutil.WithOp(ctx, "report.StudentCategoryTotals")
	key := fmt.Sprintf("student_totals:%d", studentID)
	if e.cache != nil {
		if v, ok := e.cache.Get(actor.SchoolID, key); ok {
			return v.([]CategoryTotal), nil
		}
	}

	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.ObserveQuery("student_totals", time.Since(start)) }()

	st, err := db.GetStudentByID(ctx, e.db, actor.SchoolID, studentID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return []CategoryTotal{}, nil
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT c.name, COALESCE(SUM(p.quantity), 0)
		FROM categories c
		LEFT JOIN point_events p ON p.category_id = c.id AND p.student_id = $2
		WHERE c.school_id = $1
		GROUP BY c.name
		ORDER BY c.name`,
		actor.SchoolID, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []CategoryTotal{}
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.Category, &t.Points); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(actor.SchoolID, key, out)
	}
	return out, nil
}

func (e *Engine) StudentGrandTotal(ctx context.Context, actor models.Actor, studentID int64) (int, error) {
	totals, err := e.StudentCategoryTotals(ctx, actor, studentID)
	if err != nil {
		return 0, err
	}
	sum := 0
	for _, t := range totals {
		sum += t.Points
	}
	return sum, nil
}

// FraternityStandings ranks the school's fraternities by total points,
// descending, ties broken alphabetically. Fraternities with no students or no
// events are present with 0.
func (e *Engine) FraternityStandings(ctx context.Context, actor models.Actor) ([]FraternityTotal, error) {
	ctx = ctxutil.WithOp(ctx, "report.FraternityStandings")
	const key = "standings"
	if e.cache != nil {
		if v, ok := e.cache.Get(actor.SchoolID, key); ok {
			return v.([]FraternityTotal), nil
		}
	}

	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.ObserveQuery("standings", time.Since(start)) }()

	rows, err := e.db.QueryContext(ctx, `
		SELECT f.name, COALESCE(SUM(p.quantity), 0) AS total
		FROM fraternities f
		LEFT JOIN students s ON s.fraternity_id = f.id
		LEFT JOIN point_events p ON p.student_id = s.id
		WHERE f.school_id = $1
		GROUP BY f.name
		ORDER BY total DESC, f.name`,
		actor.SchoolID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []FraternityTotal{}
	for rows.Next() {
		var t FraternityTotal
		if err := rows.Scan(&t.Fraternity, &t.Points); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(actor.SchoolID, key, out)
	}
	return out, nil
}

// SearchStudents matches code, given name or family name case-insensitively.
// A blank query matches nobody rather than everybody.
func (e *Engine) SearchStudents(ctx context.Context, actor models.Actor, query string) ([]models.Student, error) {
	ctx = ctxutil.WithOp(ctx, "report.SearchStudents")
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.ObserveQuery("search", time.Since(start)) }()
	return db.SearchStudents(ctx, e.db, actor.SchoolID, query)
}

// GradeNumbers lists the selectable numeric grades for the school, sorted
// numerically. Labels that don't parse as digits-plus-letter are dropped.
func (e *Engine) GradeNumbers(ctx context.Context, actor models.Actor) ([]string, error) {
	ctx = ctxutil.WithOp(ctx, "report.GradeNumbers")
	labels, err := e.gradeLabels(ctx, actor)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var nums []int
	for _, l := range labels {
		num, _, ok := models.ParseGradeLabel(l)
		if !ok || seen[num] {
			continue
		}
		seen[num] = true
		n, _ := strconv.Atoi(num)
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = strconv.Itoa(n)
	}
	return out, nil
}

// GradeSections lists the section letters available for one numeric grade.
func (e *Engine) GradeSections(ctx context.Context, actor models.Actor, number string) ([]string, error) {
	ctx = ctxutil.WithOp(ctx, "report.GradeSections")
	labels, err := e.gradeLabels(ctx, actor)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, l := range labels {
		num, sec, ok := models.ParseGradeLabel(l)
		if !ok || num != number || seen[sec] {
			continue
		}
		seen[sec] = true
		out = append(out, sec)
	}
	sort.Strings(out)
	return out, nil
}

// StudentsByGrade filters on an exact normalized grade label. A malformed
// label yields an empty result, never an error.
func (e *Engine) StudentsByGrade(ctx context.Context, actor models.Actor, label string) ([]models.Student, error) {
	ctx = ctxutil.WithOp(ctx, "report.StudentsByGrade")
	num, sec, ok := models.ParseGradeLabel(label)
	if !ok {
		return nil, nil
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.ListStudentsByGrade(ctx, e.db, actor.SchoolID, num+sec)
}

// StudentHistory returns a student's events newest first, with the category
// and attributing teacher resolved to display names.
func (e *Engine) StudentHistory(ctx context.Context, actor models.Actor, studentID int64) ([]HistoryEntry, error) {
	ctx = ctxutil.WithOp(ctx, "report.StudentHistory")
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.ObserveQuery("history", time.Since(start)) }()

	rows, err := e.db.QueryContext(ctx, `
		SELECT p.id, c.name, p.quantity,
		       COALESCE(t.given_names || ' ' || t.family_names, ''),
		       p.created_at
		FROM point_events p
		JOIN categories c ON c.id = p.category_id
		JOIN students s ON s.id = p.student_id
		LEFT JOIN teachers t ON t.id = p.teacher_id
		WHERE p.student_id = $1 AND s.school_id = $2
		ORDER BY p.created_at DESC, p.id DESC`,
		studentID, actor.SchoolID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.EventID, &h.Category, &h.Quantity, &h.Teacher, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (e *Engine) gradeLabels(ctx context.Context, actor models.Actor) ([]string, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return db.ListGradeLabels(ctx, e.db, actor.SchoolID)
}

// RefreshStandingsGauge pushes current standings into the prometheus gauge;
// driven by the background jobs runner.
func (e *Engine) RefreshStandingsGauge(ctx context.Context, schoolID uuid.UUID, schoolName string) error {
	standings, err := e.FraternityStandings(ctx, models.Actor{SchoolID: schoolID})
	if err != nil {
		return err
	}
	for _, s := range standings {
		metrics.FraternityPoints.WithLabelValues(schoolName, s.Fraternity).Set(float64(s.Points))
	}
	return nil
}
