package dataset

import (
	"fmt"
	"os"
	"path/filepath"
)

// ghcnColumns names the columns of a headerless-style GHCN daily export.
var ghcnColumns = []string{"station_id", "date", "element", "value", "m_flag", "q_flag", "s_flag", "obs_time"}

// Clean normalises a raw table. Header whitespace is already trimmed by
// NewTable. A precipitation table with exactly eight columns is treated as a
// GHCN daily export: its columns are renamed and rows other than PRCP dropped.
// Any other table is returned unchanged.
func Clean(t *Table) (*Table, error) {
	if t.Source != SourcePrecipitation || len(t.Header) != len(ghcnColumns) {
		return t, nil
	}
	renamed, err := t.Rename(ghcnColumns)
	if err != nil {
		return nil, err
	}
	return renamed.Filter(func(i int) bool {
		v, _ := renamed.Value(i, "element")
		return v == "PRCP"
	}), nil
}

// CleanDir cleans every source in files from rawDir into outDir under the
// same file name. Missing sources are skipped and returned.
func CleanDir(rawDir, outDir string, files map[Source]string) ([]Source, error) {
	tables, missing, err := LoadDir(rawDir, files)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	for _, source := range Sources {
		t, ok := tables[source]
		if !ok {
			continue
		}
		cleaned, err := Clean(t)
		if err != nil {
			return nil, fmt.Errorf("clean %s: %w", source, err)
		}
		if err := writeFile(filepath.Join(outDir, files[source]), cleaned); err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func writeFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
