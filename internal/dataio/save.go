// Package dataio writes measurement data in the tab-delimited ASCII layout
// the downstream analysis tooling expects, and keeps a SQLite index of past
// runs.
package dataio

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SaveColumns writes the given columns as tab-delimited ASCII, one detector
// pixel per row. All columns must have equal length.
func SaveColumns(path string, columns ...[]float64) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns to save")
	}
	rows := len(columns[0])
	for i, col := range columns {
		if len(col) != rows {
			return fmt.Errorf("column %d has %d rows, expected %d", i, len(col), rows)
		}
	}

	f, err := create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for row := 0; row < rows; row++ {
		for i, col := range columns {
			if i > 0 {
				if err := w.WriteByte('\t'); err != nil {
					return closeOnErr(f, err)
				}
			}
			if _, err := w.WriteString(formatValue(col[row])); err != nil {
				return closeOnErr(f, err)
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return closeOnErr(f, err)
		}
	}
	if err := w.Flush(); err != nil {
		return closeOnErr(f, err)
	}
	return f.Close()
}

// SaveMap writes a delay map: one row per delay point, the delay in the
// first column followed by the wavelength columns of that row.
func SaveMap(path string, delays []float64, data [][]float64) error {
	if len(delays) != len(data) {
		return fmt.Errorf("delay axis has %d points for %d data rows", len(delays), len(data))
	}

	f, err := create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for row, trace := range data {
		if _, err := w.WriteString(formatValue(delays[row])); err != nil {
			return closeOnErr(f, err)
		}
		for _, v := range trace {
			if err := w.WriteByte('\t'); err != nil {
				return closeOnErr(f, err)
			}
			if _, err := w.WriteString(formatValue(v)); err != nil {
				return closeOnErr(f, err)
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return closeOnErr(f, err)
		}
	}
	if err := w.Flush(); err != nil {
		return closeOnErr(f, err)
	}
	return f.Close()
}

func create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

func closeOnErr(f *os.File, err error) error {
	f.Close()
	return err
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
