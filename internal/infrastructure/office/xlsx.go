package office

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const notesSheet = "Review Notes"

func xlsxOptions() excelize.Options {
	return excelize.Options{
		UnzipSizeLimit:    maxPartBytes,
		UnzipXMLSizeLimit: min(maxPartBytes, 16<<20),
	}
}

// readXlsxText flattens every sheet into tab-separated lines, each sheet
// introduced by its name.
func readXlsxText(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content), xlsxOptions())
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(sheet)
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	return b.String(), nil
}

// appendXlsxNotes adds (or replaces) a notes sheet listing one note per row.
func appendXlsxNotes(original []byte, notes []string) ([]byte, error) {
	f, err := excelize.OpenReader(bytes.NewReader(original), xlsxOptions())
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(notesSheet); idx >= 0 {
		if err := f.DeleteSheet(notesSheet); err != nil {
			return nil, fmt.Errorf("reset notes sheet: %w", err)
		}
	}
	if _, err := f.NewSheet(notesSheet); err != nil {
		return nil, fmt.Errorf("create notes sheet: %w", err)
	}
	if err := f.SetCellValue(notesSheet, "A1", notesHeading); err != nil {
		return nil, err
	}
	for i, note := range notes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(notesSheet, cell, "- "+note); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
