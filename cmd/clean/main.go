// Command clean normalises the raw source CSV files: header whitespace is
// trimmed and a GHCN daily precipitation export is reduced to PRCP rows.
//
// Usage:
//
//	go run ./cmd/clean \
//	  -raw-dir data/raw \
//	  -out-dir data
package main

import (
	"flag"
	"fmt"
	"os"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/reservoir-scenario-service/internal/dataset"
)

func main() {
	rawDir := flag.String("raw-dir", "data/raw", "directory containing the raw source CSV files")
	outDir := flag.String("out-dir", "data", "directory the cleaned CSV files are written to")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := sharedobs.NewLogger(*logLevel, "text")

	missing, err := dataset.CleanDir(*rawDir, *outDir, dataset.DefaultFiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clean: %v\n", err)
		os.Exit(1)
	}
	for _, source := range missing {
		logger.Warn("raw file not found, skipped", "source", source, "file", dataset.DefaultFiles[source])
	}
	logger.Info("datasets cleaned", "raw_dir", *rawDir, "out_dir", *outDir, "cleaned", len(dataset.DefaultFiles)-len(missing))
}
