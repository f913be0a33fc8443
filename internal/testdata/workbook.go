package testdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Sheet describes one worksheet to write.
type Sheet struct {
	Name string
	// HeaderColor is the RGB fill of the header row, e.g. "4472C4".
	HeaderColor string
	Headers     []string
	Widths      []float64
	// Rows hold strings, numbers and bools; nil leaves a cell blank.
	Rows [][]any
}

// WriteWorkbook saves sheets into a new workbook at path, creating parent
// directories as needed.
func WriteWorkbook(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write %s: no sheets", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.Name); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := writeSheet(f, sh); err != nil {
			return fmt.Errorf("write %s: sheet %s: %w", path, sh.Name, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh Sheet) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{sh.HeaderColor}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
	})
	if err != nil {
		return err
	}

	for c, header := range sh.Headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sh.Name, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sh.Name, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range sh.Rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sh.Name, cell, v); err != nil {
				return err
			}
			if err := f.SetCellStyle(sh.Name, cell, cell, cellStyle); err != nil {
				return err
			}
		}
	}

	for c, width := range sh.Widths {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sh.Name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// FilmSheet is the sample data for JSON film requests.
func FilmSheet() Sheet {
	return Sheet{
		Name:        "Films",
		HeaderColor: "4472C4",
		Headers: []string{
			"title", "description", "release_year", "language_id", "rental_duration", "rental_rate",
			"length", "replacement_cost", "rating", "special_features", "fulltext", "expected_response",
		},
		Widths: []float64{20, 30, 12, 12, 16, 13, 8, 18, 10, 25, 25, 50},
		Rows: [][]any{
			{"The Shawshank Redemption", "A drama film about hope and survival", 2023, 1, 4, 4.99, 142, 29.99, "PG-13",
				"Behind the Scenes", "drama redemption prison",
				`{"film_id": 1, "title": "The Shawshank Redemption", "rental_rate": 4.99}`},
			{"The Dark Knight", "A superhero action film", 2023, 1, 5, 5.99, 152, 34.99, "PG-13",
				"Behind the Scenes,Trailers", "batman action superhero",
				`{"film_id": 2, "title": "The Dark Knight", "rental_rate": 5.99}`},
			{"Inception", "A science fiction thriller", 2023, 1, 4, 6.99, 148, 39.99, "PG-13",
				"Behind the Scenes,Commentary", "scifi dreams thriller",
				`{"film_id": 3, "title": "Inception", "rental_rate": 6.99}`},
			{"Forrest Gump", "A heartwarming drama", 2023, 1, 3, 3.99, 142, 24.99, "PG",
				"Behind the Scenes", "drama life story",
				`{"film_id": 4, "title": "Forrest Gump", "rental_rate": 3.99}`},
		},
	}
}

// XMLFilmSheet is the sample data for XML film requests.
func XMLFilmSheet() Sheet {
	return Sheet{
		Name:        "Films",
		HeaderColor: "70AD47",
		Headers: []string{
			"title", "release_year", "language_id", "rental_duration", "rental_rate",
			"length", "replacement_cost", "rating", "expected_response",
		},
		Widths: []float64{20, 12, 12, 16, 13, 8, 18, 10, 50},
		Rows: [][]any{
			{"The Matrix", 2023, 1, 4, 5.99, 136, 34.99, "R",
				`{"film_id": 10, "title": "The Matrix", "rental_rate": 5.99}`},
			{"Titanic", 2023, 1, 5, 4.99, 194, 29.99, "PG-13",
				`{"film_id": 11, "title": "Titanic", "rental_rate": 4.99}`},
		},
	}
}

// WriteSamples writes film_test_data.xlsx and film_xml_test_data.xlsx into
// dir and returns their paths.
func WriteSamples(dir string) ([]string, error) {
	files := []struct {
		name  string
		sheet Sheet
	}{
		{name: "film_test_data.xlsx", sheet: FilmSheet()},
		{name: "film_xml_test_data.xlsx", sheet: XMLFilmSheet()},
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := WriteWorkbook(path, file.sheet); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
