// Package report exports minimized sweep results as CSV with a constants
// sidecar, and charts a metric against a swept parameter.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
)

// ConstantsSuffix is appended to the CSV stem to name the constants file.
const ConstantsSuffix = "_constants.json"

// WriteCSV writes one header row and one row per minimized result.
func WriteCSV(w io.Writer, m *result.Minimized) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(m.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(m.Table()); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteConstants writes the constants as a {"name (units)": value} object.
func WriteConstants(w io.Writer, m *result.Minimized) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.ConstantColumns()); err != nil {
		return fmt.Errorf("failed to encode constants: %w", err)
	}
	return nil
}

// ConstantsPath returns the sidecar path for csvPath: results.csv becomes
// results_constants.json in the same directory.
func ConstantsPath(csvPath string) string {
	dir := filepath.Dir(csvPath)
	stem := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	return filepath.Join(dir, stem+ConstantsSuffix)
}

// SaveCSV writes the CSV to path and the constants next to it. It returns
// the constants path.
func SaveCSV(path string, m *result.Minimized) (string, error) {
	if err := writeFile(path, func(w io.Writer) error { return WriteCSV(w, m) }); err != nil {
		return "", err
	}
	constants := ConstantsPath(path)
	if err := writeFile(constants, func(w io.Writer) error { return WriteConstants(w, m) }); err != nil {
		return "", err
	}
	return constants, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
