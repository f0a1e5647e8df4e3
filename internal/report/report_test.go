//go:build testutil
// +build testutil

package report_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/admin"
	"github.com/lcb-colegios/hogwarts-points/internal/cache"
	"github.com/lcb-colegios/hogwarts-points/internal/db"
	"github.com/lcb-colegios/hogwarts-points/internal/ledger"
	"github.com/lcb-colegios/hogwarts-points/internal/models"
	"github.com/lcb-colegios/hogwarts-points/internal/report"
	"github.com/lcb-colegios/hogwarts-points/internal/testutil/testdb"
)

type fixture struct {
	schoolID  uuid.UUID
	teacherID uuid.UUID
	frats     map[string]uuid.UUID
	actor     models.Actor
}

func seedSchool(t *testing.T, database *sql.DB, categories, fraternities []string) fixture {
	t.Helper()
	ctx := context.Background()

	schoolID, err := db.CreateSchool(ctx, database, "Colegio Test "+uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range categories {
		if _, err := db.CreateCategory(ctx, database, schoolID, c); err != nil {
			t.Fatal(err)
		}
	}
	frats := map[string]uuid.UUID{}
	for _, f := range fraternities {
		id, err := db.CreateFraternity(ctx, database, schoolID, f)
		if err != nil {
			t.Fatal(err)
		}
		frats[f] = id
	}
	teacherID, err := db.CreateTeacher(ctx, database, models.Teacher{
		Email:       uuid.NewString() + "@test.edu",
		GivenNames:  "Carmen",
		FamilyNames: "Torres",
		Role:        models.RoleTeacher,
		SchoolID:    schoolID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return fixture{
		schoolID:  schoolID,
		teacherID: teacherID,
		frats:     frats,
		actor:     models.Actor{TeacherID: teacherID, Role: models.RoleTeacher, SchoolID: schoolID},
	}
}

func seedStudent(t *testing.T, database *sql.DB, fx fixture, code, given, family, grade, frat string) int64 {
	t.Helper()
	s := models.Student{
		Code: code, GivenName: given, FamilyName: family, Grade: grade, SchoolID: fx.schoolID,
	}
	if frat != "" {
		id := fx.frats[frat]
		s.FraternityID = &id
	}
	studentID, err := db.CreateStudent(context.Background(), database, s)
	if err != nil {
		t.Fatal(err)
	}
	return studentID
}

func TestStudentTotals_ZeroFillAndGrandTotal(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, []string{"Respeto", "Honestidad"}, []string{"Lealtad"})
	student := seedStudent(t, h.DB, fx, "E001", "Ana", "Ruiz", "6A", "Lealtad")

	store := ledger.New(h.DB, nil)
	engine := report.New(h.DB, nil, nil)
	ctx := context.Background()

	// Example ledger: Respeto +5, Respeto -2, Honestidad +3.
	for _, ev := range []struct {
		cat   string
		delta int
	}{{"Respeto", 5}, {"Respeto", -2}, {"Honestidad", 3}} {
		if _, err := store.RecordEvent(ctx, fx.actor, student, ev.cat, ev.delta); err != nil {
			t.Fatal(err)
		}
	}

	totals, err := engine.StudentCategoryTotals(ctx, fx.actor, student)
	if err != nil {
		t.Fatal(err)
	}
	want := []report.CategoryTotal{{Category: "Honestidad", Points: 3}, {Category: "Respeto", Points: 3}}
	if len(totals) != len(want) {
		t.Fatalf("got %v, want %v", totals, want)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Fatalf("got %v, want %v", totals, want)
		}
	}

	grand, err := engine.StudentGrandTotal(ctx, fx.actor, student)
	if err != nil {
		t.Fatal(err)
	}
	if grand != 6 {
		t.Fatalf("grand total %d, want 6", grand)
	}
}

func TestStudentTotals_NoEventsStillListsEveryCategory(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, []string{"Gratitud", "Respeto", "Solidaridad"}, nil)
	student := seedStudent(t, h.DB, fx, "E001", "Ana", "Ruiz", "6A", "")

	engine := report.New(h.DB, nil, nil)
	totals, err := engine.StudentCategoryTotals(context.Background(), fx.actor, student)
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 3 {
		t.Fatalf("got %d categories, want all 3 zero-filled: %v", len(totals), totals)
	}
	for _, ct := range totals {
		if ct.Points != 0 {
			t.Fatalf("expected zeros, got %v", totals)
		}
	}

	grand, err := engine.StudentGrandTotal(context.Background(), fx.actor, student)
	if err != nil || grand != 0 {
		t.Fatalf("grand total (%d, %v), want (0, nil)", grand, err)
	}
}

func TestStudentTotals_UnknownStudentIsEmptyNotError(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, []string{"Respeto"}, nil)

	engine := report.New(h.DB, nil, nil)
	totals, err := engine.StudentCategoryTotals(context.Background(), fx.actor, 424242)
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 0 {
		t.Fatalf("unknown student should yield empty result, got %v", totals)
	}
}

func TestFraternityStandings(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, []string{"Respeto"}, []string{"Amistad", "Fortaleza", "Lealtad", "Sabiduría"})

	luisa := seedStudent(t, h.DB, fx, "E001", "Luisa", "Vega", "6A", "Lealtad")
	juan := seedStudent(t, h.DB, fx, "E002", "Juan", "Mora", "6A", "Amistad")
	ana := seedStudent(t, h.DB, fx, "E003", "Ana", "Ruiz", "7B", "Fortaleza")

	store := ledger.New(h.DB, nil)
	ctx := context.Background()
	for studentID, pts := range map[int64]int{luisa: 20, juan: 10, ana: 10} {
		if _, err := store.RecordEvent(ctx, fx.actor, studentID, "Respeto", pts); err != nil {
			t.Fatal(err)
		}
	}

	engine := report.New(h.DB, nil, nil)
	standings, err := engine.FraternityStandings(ctx, fx.actor)
	if err != nil {
		t.Fatal(err)
	}

	want := []report.FraternityTotal{
		{Fraternity: "Lealtad", Points: 20},
		{Fraternity: "Amistad", Points: 10}, // tie with Fortaleza broken alphabetically
		{Fraternity: "Fortaleza", Points: 10},
		{Fraternity: "Sabiduría", Points: 0}, // no students, still listed
	}
	if len(standings) != len(want) {
		t.Fatalf("got %v, want %v", standings, want)
	}
	for i := range want {
		if standings[i] != want[i] {
			t.Fatalf("got %v, want %v", standings, want)
		}
	}
}

func TestStandingsFollowCurrentAssignment(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, []string{"Respeto"}, []string{"Amistad", "Lealtad"})
	student := seedStudent(t, h.DB, fx, "E001", "Ana", "Ruiz", "6A", "Lealtad")

	store := ledger.New(h.DB, nil)
	ctx := context.Background()
	if _, err := store.RecordEvent(ctx, fx.actor, student, "Respeto", 15); err != nil {
		t.Fatal(err)
	}

	// A director moves the student to another fraternity; the points follow
	// the current assignment, they are not split historically.
	director := models.Actor{TeacherID: fx.teacherID, Role: models.RoleDirector, SchoolID: fx.schoolID}
	svc := admin.New(h.DB, nil)
	st, err := db.GetStudentByID(ctx, h.DB, fx.schoolID, student)
	if err != nil {
		t.Fatal(err)
	}
	amistad := fx.frats["Amistad"]
	st.FraternityID = &amistad
	if err := svc.UpdateStudent(ctx, director, *st); err != nil {
		t.Fatal(err)
	}

	engine := report.New(h.DB, nil, nil)
	standings, err := engine.FraternityStandings(ctx, fx.actor)
	if err != nil {
		t.Fatal(err)
	}
	if standings[0].Fraternity != "Amistad" || standings[0].Points != 15 {
		t.Fatalf("points did not follow reassignment: %v", standings)
	}
	if standings[1].Fraternity != "Lealtad" || standings[1].Points != 0 {
		t.Fatalf("old fraternity should be back to 0: %v", standings)
	}
}

func TestSearchStudents(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, nil, nil)
	seedStudent(t, h.DB, fx, "LCB-101", "María", "García", "6A", "")
	seedStudent(t, h.DB, fx, "LCB-102", "Juan", "Marín", "6B", "")
	seedStudent(t, h.DB, fx, "XYZ-900", "Pedro", "Lopez", "7A", "")

	engine := report.New(h.DB, nil, nil)
	ctx := context.Background()

	// Case-insensitive, OR across code / given name / family name.
	got, err := engine.SearchStudents(ctx, fx.actor, "mar")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("query 'mar' matched %d students, want 2: %v", len(got), got)
	}

	got, err = engine.SearchStudents(ctx, fx.actor, "lcb-101")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Code != "LCB-101" {
		t.Fatalf("code search failed: %v", got)
	}

	got, err = engine.SearchStudents(ctx, fx.actor, "   ")
	if err != nil || len(got) != 0 {
		t.Fatalf("blank query should match nobody, got %v (%v)", got, err)
	}
}

func TestGradeSelection(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, nil, nil)
	seedStudent(t, h.DB, fx, "E001", "Ana", "Ruiz", "6A", "")
	seedStudent(t, h.DB, fx, "E002", "Juan", "Mora", "6B", "")
	seedStudent(t, h.DB, fx, "E003", "Luisa", "Vega", "10A", "")
	seedStudent(t, h.DB, fx, "E004", "Mal", "Etiquetado", "sexto", "") // silently excluded

	engine := report.New(h.DB, nil, nil)
	ctx := context.Background()

	nums, err := engine.GradeNumbers(ctx, fx.actor)
	if err != nil {
		t.Fatal(err)
	}
	if len(nums) != 2 || nums[0] != "6" || nums[1] != "10" {
		t.Fatalf("grade numbers %v, want [6 10]", nums)
	}

	secs, err := engine.GradeSections(ctx, fx.actor, "6")
	if err != nil {
		t.Fatal(err)
	}
	if len(secs) != 2 || secs[0] != "A" || secs[1] != "B" {
		t.Fatalf("sections %v, want [A B]", secs)
	}

	students, err := engine.StudentsByGrade(ctx, fx.actor, "6A")
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 1 || students[0].Code != "E001" {
		t.Fatalf("grade filter wrong: %v", students)
	}

	students, err = engine.StudentsByGrade(ctx, fx.actor, "sexto")
	if err != nil || len(students) != 0 {
		t.Fatalf("malformed label should yield empty, got %v (%v)", students, err)
	}
}

func TestStudentHistory(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, []string{"Respeto"}, nil)
	student := seedStudent(t, h.DB, fx, "E001", "Ana", "Ruiz", "6A", "")

	store := ledger.New(h.DB, nil)
	ctx := context.Background()
	if _, err := store.RecordEvent(ctx, fx.actor, student, "Respeto", 5); err != nil {
		t.Fatal(err)
	}
	// Unattributed correction.
	if _, err := store.RecordEvent(ctx, models.Actor{SchoolID: fx.schoolID}, student, "Respeto", -2); err != nil {
		t.Fatal(err)
	}

	engine := report.New(h.DB, nil, nil)
	history, err := engine.StudentHistory(ctx, fx.actor, student)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d entries, want 2", len(history))
	}
	// Newest first.
	if history[0].Quantity != -2 || history[0].Teacher != "" {
		t.Fatalf("newest entry wrong: %+v", history[0])
	}
	if history[1].Quantity != 5 || history[1].Teacher != "Carmen Torres" {
		t.Fatalf("oldest entry wrong: %+v", history[1])
	}
}

func TestCacheInvalidatedOnWrite(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	fx := seedSchool(t, h.DB, []string{"Respeto"}, []string{"Lealtad"})
	student := seedStudent(t, h.DB, fx, "E001", "Ana", "Ruiz", "6A", "Lealtad")

	readCache := cache.New(time.Minute)
	store := ledger.New(h.DB, nil)
	store.OnWrite(readCache.Invalidate)
	engine := report.New(h.DB, readCache, nil)
	ctx := context.Background()

	standings, err := engine.FraternityStandings(ctx, fx.actor)
	if err != nil {
		t.Fatal(err)
	}
	if standings[0].Points != 0 {
		t.Fatalf("fresh school should be at 0, got %v", standings)
	}

	// The write must be visible immediately, not after the cache TTL.
	if _, err := store.RecordEvent(ctx, fx.actor, student, "Respeto", 5); err != nil {
		t.Fatal(err)
	}
	standings, err = engine.FraternityStandings(ctx, fx.actor)
	if err != nil {
		t.Fatal(err)
	}
	if standings[0].Points != 5 {
		t.Fatalf("stale read after write: %v", standings)
	}
}
