// Package export renders aggregation views as xlsx workbooks for download or
// printing; the dashboard's bar charts are the presentation layer's concern.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lcb-colegios/hogwarts-points/internal/report"
	"github.com/xuri/excelize/v2"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

type Workbook struct {
	File *excelize.File
}

func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	f := excelize.NewFile()

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, s := range sheets {
		name := s.Title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("new sheet: %w", err)
			}
		}
		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", colName(col+1))
			if err := f.SetCellStr(name, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		end := colName(len(s.Header)) + "1"
		_ = f.SetCellStyle(name, "A1", end, bold)
		_ = f.AutoFilter(name, "A1:"+end, nil)

		for r, row := range s.Rows {
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
				if err := f.SetCellStr(name, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}
		// Width heuristic from header and the first rows.
		for c := 1; c <= len(s.Header); c++ {
			maxim := len(s.Header[c-1])
			for r := 0; r < minim(50, len(s.Rows)); r++ {
				if c <= len(s.Rows[r]) {
					if l := len(s.Rows[r][c-1]); l > maxim {
						maxim = l
					}
				}
			}
			w := float64(maxim) * 0.9
			if w < 12 {
				w = 12
			}
			if w > 40 {
				w = 40
			}
			_ = f.SetColWidth(name, colName(c), colName(c), w)
		}
	}
	return &Workbook{File: f}, nil
}

func (w *Workbook) SaveTemp(base string) (string, error) {
	name := fmt.Sprintf("%s_%s.xlsx", base, time.Now().Format("2006-01-02"))
	path := filepath.Join(os.TempDir(), sanitizeFileName(name))
	return path, w.File.SaveAs(path)
}

// StandingsWorkbook is the inter-fraternity comparison sheet.
func StandingsWorkbook(standings []report.FraternityTotal) (*Workbook, error) {
	rows := make([][]string, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, []string{s.Fraternity, fmt.Sprintf("%d", s.Points)})
	}
	return NewWorkbook([]SheetSpec{{
		Title:  "Fraternidades",
		Header: []string{"Fraternidad", "Puntos"},
		Rows:   rows,
	}})
}

// StudentWorkbook holds one sheet of per-category totals and one of history.
func StudentWorkbook(totals []report.CategoryTotal, history []report.HistoryEntry) (*Workbook, error) {
	totalRows := make([][]string, 0, len(totals)+1)
	grand := 0
	for _, t := range totals {
		grand += t.Points
		totalRows = append(totalRows, []string{t.Category, fmt.Sprintf("%d", t.Points)})
	}
	totalRows = append(totalRows, []string{"Total", fmt.Sprintf("%d", grand)})

	histRows := make([][]string, 0, len(history))
	for _, h := range history {
		histRows = append(histRows, []string{
			h.Category,
			fmt.Sprintf("%+d", h.Quantity),
			h.Teacher,
			h.CreatedAt.Format("02.01.2006 15:04"),
		})
	}
	return NewWorkbook([]SheetSpec{
		{
			Title:  "Puntos",
			Header: []string{"Valor", "Puntos"},
			Rows:   totalRows,
		},
		{
			Title:  "Historial",
			Header: []string{"Valor", "Cantidad", "Profesor", "Fecha"},
			Rows:   histRows,
		},
	})
}

// helpers

func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

func minim(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

func sanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Join(strings.Fields(s), " ")
	return invalidFileRe.ReplaceAllString(s, "_")
}
