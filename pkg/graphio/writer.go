package graphio

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeAtomic streams content into a temporary file next to filePath and
// renames it into place only if write succeeds, so readers never observe a
// partial file.
func writeAtomic(filePath string, write func(w io.Writer) error) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", filePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filePath, err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filePath, err)
	}
	return nil
}

func WriteJSON(filePath string, v any) error {
	return writeAtomic(filePath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	})
}

// WriteLines writes one line per entry, newline-separated with no trailing
// newline.
func WriteLines(filePath string, lines []string) error {
	return writeAtomic(filePath, func(w io.Writer) error {
		for i, line := range lines {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return fmt.Errorf("failed to write line %d: %w", i+1, err)
				}
			}
			if _, err := io.WriteString(w, line); err != nil {
				return fmt.Errorf("failed to write line %d: %w", i+1, err)
			}
		}
		return nil
	})
}

func WriteCSV(filePath string, headers []string, data [][]string) error {
	return writeAtomic(filePath, func(w io.Writer) error {
		writer := csv.NewWriter(w)

		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		for i, row := range data {
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}

		writer.Flush()
		return writer.Error()
	})
}
