package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// DefaultFiles maps each source to its file name inside the data directory.
var DefaultFiles = map[Source]string{
	SourceReservoir:     "shasta_reservoir.csv",
	SourcePrecipitation: "precipitation_data.csv",
	SourceClimate:       "climate_projections.csv",
	SourceLandUse:       "agriculture_land_use.csv",
	SourceStreamflow:    "streamflow_data.csv",
}

// ReadCSV reads a headed CSV table from r. Rows shorter than the header are
// accepted and padded.
func ReadCSV(r io.Reader, source Source) (*Table, error) {
	reader := gocsv.LazyCSVReader(r)
	if cr, ok := reader.(*csv.Reader); ok {
		cr.FieldsPerRecord = -1
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s csv: %w", source, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s csv: empty file", source)
	}
	return NewTable(source, records[0], records[1:]), nil
}

// LoadCSV reads a headed CSV table from path.
func LoadCSV(path string, source Source) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(f, source)
}

// LoadDir loads every source listed in files from dir. Missing files are
// skipped and reported in the second return value; any other failure aborts.
func LoadDir(dir string, files map[Source]string) (map[Source]*Table, []Source, error) {
	tables := make(map[Source]*Table, len(files))
	var missing []Source

	for _, source := range Sources {
		name, ok := files[source]
		if !ok {
			continue
		}
		t, err := LoadCSV(filepath.Join(dir, name), source)
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, source)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		tables[source] = t
	}

	return tables, missing, nil
}

// WriteCSV writes the table with its header to w.
func WriteCSV(w io.Writer, t *Table) error {
	cw := gocsv.DefaultCSVWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write %s header: %w", t.Source, err)
	}
	for _, r := range t.Rows {
		if err := cw.Write(r); err != nil {
			return fmt.Errorf("write %s row: %w", t.Source, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
