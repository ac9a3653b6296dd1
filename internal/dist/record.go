package dist

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/potassco/gringo-dist/internal/utils/system"
)

// Record describes an archive: what it contains and where it was built.
type Record struct {
	BuildID  string           `json:"build_id"`
	Kind     string           `json:"kind"`
	Name     string           `json:"name"`
	Version  string           `json:"version"`
	Platform string           `json:"platform,omitempty"`
	Format   string           `json:"format"`
	Archive  string           `json:"archive"`
	Created  string           `json:"created"`
	Host     *system.HostInfo `json:"host,omitempty"`
	Files    []RecordFile     `json:"files"`
}

// RecordFile is one archive member.
type RecordFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

func (d *Distribution) newRecord(kind string, opts ArchiveOptions) *Record {
	return &Record{
		BuildID: uuid.NewString(),
		Kind:    kind,
		Name:    d.Metadata.Name,
		Version: d.Metadata.Version,
		Format:  opts.Format,
		Created: time.Now().UTC().Format(time.RFC3339),
	}
}

// WriteFile writes the record as indented JSON.
func (r *Record) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing record %s: %w", path, err)
	}
	return nil
}

// ReadRecord loads a record written by WriteFile.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", path, err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", path, err)
	}
	return &r, nil
}
