package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

func sheetName(f *excelize.File, want string) (string, error) {
	if want == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return "", fmt.Errorf("workbook has no sheets")
		}
		return list[0], nil
	}
	idx, err := f.GetSheetIndex(want)
	if err != nil {
		return "", err
	}
	if idx < 0 {
		return "", fmt.Errorf("sheet %q not found", want)
	}
	return want, nil
}

func readXLSX(path, want string) ([][]string, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	name, err := sheetName(f, want)
	if err != nil {
		return nil, "", err
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sheet: %w", err)
	}
	return rows, name, nil
}

// writeXLSX copies src to dst with the filled cells set. Formatting and
// every other cell of the workbook are preserved.
func writeXLSX(src, dst, sheet string, fill map[Position]string) error {
	f, err := excelize.OpenFile(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = f.Close() }()
	for p, v := range fill {
		axis, err := excelize.CoordinatesToCellName(p.Col, p.Row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, axis, v); err != nil {
			return fmt.Errorf("set %s: %w", axis, err)
		}
	}
	if err := f.SaveAs(dst); err != nil {
		return fmt.Errorf("save %s: %w", dst, err)
	}
	return nil
}
