package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Falls back to v4 if v7 fails
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// Domain-specific ID types
type (
	SampleID  ID
	BuildID   ID
	DatasetID ID
	RunID     ID
)

// String conversions for domain IDs
func (id SampleID) String() string  { return ID(id).String() }
func (id BuildID) String() string   { return ID(id).String() }
func (id DatasetID) String() string { return ID(id).String() }
func (id RunID) String() string     { return ID(id).String() }

// NewRunID returns a fresh identifier for one pipeline invocation.
func NewRunID() RunID { return RunID(NewID()) }

// ParseSampleID parses a string into SampleID
func ParseSampleID(s string) (SampleID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("sample ID cannot be empty")
	}
	return SampleID(strings.TrimSpace(s)), nil
}

// ParseDatasetID parses a string into DatasetID
func ParseDatasetID(s string) (DatasetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset ID cannot be empty")
	}
	return DatasetID(strings.TrimSpace(s)), nil
}

// NewSampleID builds the identifier of a printed specimen: build prefix, plate
// column letter and a row number padded to two digits (P001_B001_A03).
func NewSampleID(build BuildID, column string, row int) (SampleID, error) {
	if build.IsEmpty() {
		return "", fmt.Errorf("build ID cannot be empty")
	}
	column = strings.TrimSpace(column)
	if column == "" {
		return "", fmt.Errorf("column cannot be empty")
	}
	if row < 0 {
		return "", fmt.Errorf("row must be non-negative, got %d", row)
	}
	return SampleID(fmt.Sprintf("%s_%s%02d", build, column, row)), nil
}

// IsEmpty checks if the build ID is empty
func (id BuildID) IsEmpty() bool { return id == "" }

// Build returns the plate/build prefix of a sample ID ("P001_B001" for
// "P001_B001_A03"). Identifiers with fewer than two segments are returned as-is.
func (id SampleID) Build() BuildID {
	parts := strings.Split(string(id), "_")
	if len(parts) < 2 {
		return BuildID(id)
	}
	return BuildID(strings.Join(parts[:2], "_"))
}

// BuildFromFileName extracts the build prefix of a multi-record file such as
// "P001_B001-nohough.json".
func BuildFromFileName(name string) BuildID {
	base := name
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".json")
	if i := strings.Index(base, "-"); i >= 0 {
		base = base[:i]
	}
	return BuildID(base)
}
