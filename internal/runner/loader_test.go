package runner

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"api_auto_test/internal/model"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatal(err)
		}
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func TestLoadRowsByHeaderName(t *testing.T) {
	f := writeWorkbook(t, "APIs", [][]interface{}{
		{"Variables", "cURL", "API Name"},
		{`q("a"),n(1)`, "curl https://e.com/search", "Search"},
		{"", "", "Empty row"},
		{"flag", "curl https://e.com/other", ""},
	})
	path := filepath.Join(t.TempDir(), "apis.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadRows(path, "APIs", 1)
	if err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	want := []model.APIRow{
		{
			APIName:   "Search",
			Curl:      "curl https://e.com/search",
			Variables: `q("a"),n(1)`,
			FieldsToTest: []model.FieldSpec{
				{Name: "q", CustomValues: []model.Value{"a"}},
				{Name: "n", CustomValues: []model.Value{int64(1)}},
			},
		},
		{
			APIName:      "Row 4",
			Curl:         "curl https://e.com/other",
			Variables:    "flag",
			FieldsToTest: []model.FieldSpec{{Name: "flag", CustomValues: []model.Value{}}},
		},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("LoadRows() = %#v\nwant %#v", rows, want)
	}
}

func TestReadRowsDefaultColumnsAndSheet(t *testing.T) {
	f := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"A", "B", "C"},
		{"Login", "curl https://e.com/login", "user"},
	})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadRows(&buf, "NoSuchSheet", 1)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 1 || rows[0].APIName != "Login" || rows[0].Curl != "curl https://e.com/login" || rows[0].Variables != "user" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestReadRowsEmpty(t *testing.T) {
	f := writeWorkbook(t, "Sheet1", [][]interface{}{{"API Name", "cURL", "Variables"}})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadRows(&buf, "Sheet1", 1); err == nil {
		t.Fatal("expected error for sheet without cases")
	}
}
