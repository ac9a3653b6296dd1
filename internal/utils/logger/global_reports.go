package logger

import (
	"fmt"
	"os"
	"path/filepath"
)

type StringListReport struct {
	Title string
	Items []string
}

// InstalledFilesReport collects the absolute paths written by an install so
// they can be dumped with --record.
var InstalledFilesReport StringListReport

func init() {
	InstalledFilesReport = StringListReport{
		Title: "InstalledFiles",
		Items: []string{},
	}
}

// Add appends an item to the report.
func (r *StringListReport) Add(item string) {
	r.Items = append(r.Items, item)
}

// Reset drops all collected items.
func (r *StringListReport) Reset() {
	r.Items = []string{}
}

// WriteListToFile writes the report to reportPath, one item per line, and
// clears it. Parent directories are created as needed.
func (r *StringListReport) WriteListToFile(reportPath string) error {
	if err := os.MkdirAll(filepath.Dir(reportPath), 0755); err != nil {
		return fmt.Errorf("creating base path: %w", err)
	}

	f, err := os.OpenFile(reportPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	for _, item := range r.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return fmt.Errorf("writing to file: %w", err)
		}
	}

	r.Reset()
	return nil
}
