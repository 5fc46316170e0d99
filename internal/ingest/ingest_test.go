package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/railstation/railrec/pkg/stg"
)

func TestDiscoverHeader(t *testing.T) {
	cells := [][]string{
		{"Отчет по вагонам за март"},
		{},
		{"Вагон №", "Накладная №", "Ст. отправления", "Ст. назначения", "Груж\\пор", "Отчетная дата", "Особые отметки"},
		{"7411122", "ЭА123456", "Лена", "Батарейная", "ГРУЖ", "01.03.2024", ""},
	}

	idx, fields := discoverHeader(cells)
	if idx != 2 {
		t.Fatalf("header index = %d, want 2 (below the banner)", idx)
	}
	if fields[0] != stg.FieldWagon || fields[2] != stg.FieldOrigin || fields[4] != stg.FieldLoadStatus {
		t.Errorf("fields = %v", fields)
	}
	if fields[6] != "Особые отметки" {
		t.Errorf("unknown column must keep its own name, got %q", fields[6])
	}
}

func TestDiscoverHeaderMissingRequired(t *testing.T) {
	cells := [][]string{{"Вагон №", "Накладная №"}}
	if idx, _ := discoverHeader(cells); idx != -1 {
		t.Errorf("a row without origin/destination is not a header, got index %d", idx)
	}
}

func TestReadSTGWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stg.xlsx")

	f := excelize.NewFile()
	rows := [][]any{
		{"Суточный отчет"},
		{"Вагон №", "Накладная №", "Ст. отправления", "Ст. назначения", "Груж\\пор", "Отчетная дата"},
		{"7411122", "ЭА123456", "Лена", "Батарейная", "ГРУЖ", "01.03.2024"},
		{}, // blank rows are skipped
		{"7411123", "ЭА123457", "Батарейная", "Лена", "ПОР", "02.03.2024"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := ReadSTGWorkbook(path)
	if err != nil {
		t.Fatalf("ReadSTGWorkbook() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0][stg.FieldWagon] != "7411122" || got[0][stg.FieldOrigin] != "Лена" {
		t.Errorf("row 0 = %v", got[0])
	}
	if got[1][stg.FieldLoadStatus] != "ПОР" {
		t.Errorf("row 1 load status = %q", got[1][stg.FieldLoadStatus])
	}
}

func TestReadMappingPairs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.csv")
	content := "Code;Mapped\nR100;A100\nA100;B100\n;\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	pairs, err := ReadMappingPairs(path, CSVOptions{Comma: ';'})
	if err != nil {
		t.Fatalf("ReadMappingPairs() error: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2 (header and blank rows skipped)", len(pairs))
	}
	if pairs[0].Left != "R100" || pairs[0].Right != "A100" {
		t.Errorf("pairs[0] = %+v", pairs[0])
	}
}

func TestReadActiveCodesWindows1251(t *testing.T) {
	// "Код" in Windows-1251, then two codes.
	raw := append([]byte{0xCA, 0xEE, 0xE4, '\n'}, []byte("A100\nB100\n")...)
	path := filepath.Join(t.TempDir(), "active.csv")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	codes, err := ReadActiveCodes(path, CSVOptions{Windows1251: true})
	if err != nil {
		t.Fatalf("ReadActiveCodes() error: %v", err)
	}
	if len(codes) != 2 || codes[0] != "A100" || codes[1] != "B100" {
		t.Errorf("codes = %v", codes)
	}
}

func TestCSVReaderDecodesWindows1251(t *testing.T) {
	// "Лена" in Windows-1251.
	raw := []byte{0xCB, 0xE5, 0xED, 0xE0}
	r := csvReader(bytes.NewReader(raw), CSVOptions{Windows1251: true})
	rec, err := r.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if rec[0] != "Лена" {
		t.Errorf("decoded %q, want Лена", rec[0])
	}
}
