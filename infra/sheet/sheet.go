package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilianp07/oncall/core/model"
)

// Format of a grid file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported grid format: %s", filepath.Ext(path))
	}
}

// Document is a loaded grid file. It remembers its source so the solved
// schedule can be written back into a copy.
type Document struct {
	*Grid
	Path   string
	Format Format
	sheet  string
	rows   [][]string
}

// Load reads and parses a grid file.
func Load(path string, l Layout) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	d := &Document{Path: path, Format: format}
	switch format {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		d.rows, err = readCSV(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	case FormatXLSX:
		if d.rows, d.sheet, err = readXLSX(path, l.Sheet); err != nil {
			return nil, err
		}
	}
	if d.Grid, err = Parse(d.rows, l); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// DefaultOutput names the output next to the source: month.xlsx becomes
// month_solved.xlsx.
func DefaultOutput(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_solved" + ext
}

// Write saves a copy of the source with the schedule's assignments filled
// in. The output format follows the output extension and must match the
// source format.
func (d *Document) Write(out string, s *model.Schedule) error {
	format, err := FormatOf(out)
	if err != nil {
		return err
	}
	if format != d.Format {
		return fmt.Errorf("cannot write %s grid as %s", d.Format, format)
	}
	fill, err := d.Fill(s)
	if err != nil {
		return err
	}
	if format == FormatCSV {
		return writeCSV(out, d.rows, fill)
	}
	return writeXLSX(d.Path, out, d.sheet, fill)
}
