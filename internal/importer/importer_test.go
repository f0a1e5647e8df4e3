package importer

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

var rosterCategories = []string{"Marca LCB", "Respeto", "Solidaridad"}

func latin1(t *testing.T, s string) string {
	t.Helper()
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return out
}

func TestParseRosterNormalizesHeaders(t *testing.T) {
	// Headers as the legacy exports actually spell them: unaccented,
	// abbreviated, padded with spaces.
	csv := "cod ;nombre;apellidos;Fraternidad;Grado;Marca LCB;Respeto;Solidaridad\n" +
		"E001;María;García López;Lealtad;6A;5;0;3\n"

	rows, bad, err := ParseRoster(strings.NewReader(latin1(t, csv)), rosterCategories)
	if err != nil {
		t.Fatal(err)
	}
	if len(bad) != 0 {
		t.Fatalf("unexpected bad rows: %v", bad)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	r := rows[0]
	if r.Code != "E001" || r.GivenName != "María" || r.FamilyName != "García López" {
		t.Fatalf("identity fields wrong: %+v", r)
	}
	if r.Fraternity != "Lealtad" || r.Grade != "6A" {
		t.Fatalf("fraternity/grade wrong: %+v", r)
	}
	if len(r.Points) != 2 || r.Points["Marca LCB"] != 5 || r.Points["Solidaridad"] != 3 {
		t.Fatalf("points wrong (zero cells must be dropped): %v", r.Points)
	}
}

func TestParseRosterReportsInvalidRows(t *testing.T) {
	csv := "Codigo;Nombre;Apellidos;Respeto\n" +
		"E001;Ana;Ruiz;2\n" +
		";SinCodigo;Pérez;1\n" +
		"E003;Juan;Mora;no-numérico\n"

	rows, bad, err := ParseRoster(strings.NewReader(latin1(t, csv)), rosterCategories)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (valid ones kept)", len(rows))
	}
	if len(bad) != 1 || bad[0].Line != 3 {
		t.Fatalf("want one bad row at line 3, got %v", bad)
	}
	// A non-numeric points cell counts as zero, not as a row failure.
	if len(rows[1].Points) != 0 {
		t.Fatalf("noise cell should be dropped, got %v", rows[1].Points)
	}
}

func TestParseRosterUnknownColumnsIgnored(t *testing.T) {
	csv := "Codigo;Nombre;Apellidos;Observaciones;Respeto\n" +
		"E001;Ana;Ruiz;se porta bien;4\n"

	rows, _, err := ParseRoster(strings.NewReader(latin1(t, csv)), rosterCategories)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || len(rows[0].Points) != 1 || rows[0].Points["Respeto"] != 4 {
		t.Fatalf("unexpected parse: %+v", rows)
	}
}
