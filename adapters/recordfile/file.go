// Package recordfile reads and writes sample records as JSON files. A file holds
// either one record object or an array of records.
package recordfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"porosity/domain/core"
	"porosity/domain/record"
)

const indent = "  "

// ReadAll reads every record in a file. A single-object file yields one record.
func ReadAll(path string) ([]record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrRecordNotFound, path)
		}
		return nil, fmt.Errorf("read record file: %w", err)
	}
	return Decode(path, data)
}

// Decode parses file contents; path is used only for error messages.
func Decode(path string, data []byte) ([]record.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, core.NewMalformedRecordError(path, "empty file")
	}

	if trimmed[0] == '[' {
		var records []record.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, core.NewMalformedRecordError(path, err.Error())
		}
		return records, nil
	}

	var r record.Record
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, core.NewMalformedRecordError(path, err.Error())
	}
	return []record.Record{r}, nil
}

// Read reads a file that must hold exactly one record.
func Read(path string) (record.Record, error) {
	records, err := ReadAll(path)
	if err != nil {
		return record.Record{}, err
	}
	if len(records) != 1 {
		return record.Record{}, core.NewMalformedRecordError(path, fmt.Sprintf("expected one record, found %d", len(records)))
	}
	return records[0], nil
}

// Write stores one record as a JSON object.
func Write(path string, r record.Record) error {
	return writeJSON(path, r)
}

// WriteAll stores records as a JSON array.
func WriteAll(path string, records []record.Record) error {
	if records == nil {
		records = []record.Record{}
	}
	return writeJSON(path, records)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", indent)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	// write next to the target and rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
