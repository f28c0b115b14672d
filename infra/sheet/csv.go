package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func writeCSV(path string, rows [][]string, fill map[Position]string) (err error) {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	for p, v := range fill {
		for len(out) < p.Row {
			out = append(out, nil)
		}
		for len(out[p.Row-1]) < p.Col {
			out[p.Row-1] = append(out[p.Row-1], "")
		}
		out[p.Row-1][p.Col-1] = v
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := csv.NewWriter(f)
	if err := w.WriteAll(out); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
