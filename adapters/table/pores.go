package table

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"porosity/domain/core"
	"porosity/domain/pore"
)

// Column headers written by the CT scanner export.
const (
	ColumnX          = "Center Of Mass X (µm)"
	ColumnY          = "Center Of Mass Y (µm)"
	ColumnZ          = "Center Of Mass Z (µm)"
	ColumnVolume     = "Volume (µm³)"
	ColumnSampleID   = "Sample ID"
	ColumnPartVolume = "Part Volume (µm³)"
)

// ErrPartVolumeTable is returned when a pore table is read from a file that
// holds part volumes instead.
var ErrPartVolumeTable = errors.New("part volume table, not a pore table")

// SampleIDFromPath returns the file name without directory or extension.
func SampleIDFromPath(path string) core.SampleID {
	base := filepath.Base(path)
	return core.SampleID(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ReadPoreSet reads one measurement table into a pore set keyed by the file's
// sample ID.
func ReadPoreSet(path string) (pore.Set, error) {
	data, err := NewReader(path).ReadData()
	if err != nil {
		return pore.Set{}, err
	}
	if data.IsPartVolumeTable() {
		return pore.Set{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrPartVolumeTable)
	}
	pores, err := data.Pores()
	if err != nil {
		return pore.Set{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return pore.NewSet(SampleIDFromPath(path), pores), nil
}

// Pores converts table rows into pores. All four measurement columns must be
// present and every cell must parse as a number.
func (d *Data) Pores() ([]pore.Pore, error) {
	cols, err := d.columns(ColumnX, ColumnY, ColumnZ, ColumnVolume)
	if err != nil {
		return nil, err
	}

	pores := make([]pore.Pore, 0, len(d.Rows))
	for i, row := range d.Rows {
		vals := make([]float64, len(cols))
		for j, col := range cols {
			v, err := parseCell(row[col])
			if err != nil {
				return nil, fmt.Errorf("%w: data row %d column %q: %v", core.ErrRecordMalformed, i+1, col, err)
			}
			vals[j] = v
		}
		pores = append(pores, pore.Pore{
			Centroid: pore.Centroid{X: vals[0], Y: vals[1], Z: vals[2]},
			Volume:   vals[3],
		})
	}
	return pores, nil
}

// ReadPartVolumes reads a Sample ID -> part volume table.
func ReadPartVolumes(path string) (map[core.SampleID]float64, error) {
	data, err := NewReader(path).ReadData()
	if err != nil {
		return nil, err
	}
	volumes, err := data.PartVolumes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return volumes, nil
}

// IsPartVolumeTable reports whether the table has the part volume columns.
func (d *Data) IsPartVolumeTable() bool {
	_, err := d.columns(ColumnSampleID, ColumnPartVolume)
	return err == nil
}

// PartVolumes converts table rows into part volumes by sample. Rows with an
// empty volume cell are skipped.
func (d *Data) PartVolumes() (map[core.SampleID]float64, error) {
	cols, err := d.columns(ColumnSampleID, ColumnPartVolume)
	if err != nil {
		return nil, err
	}

	out := make(map[core.SampleID]float64, len(d.Rows))
	for i, row := range d.Rows {
		id, err := core.ParseSampleID(row[cols[0]])
		if err != nil {
			return nil, fmt.Errorf("%w: data row %d: %v", core.ErrRecordMalformed, i+1, err)
		}
		cell := row[cols[1]]
		if cell == "" {
			continue
		}
		v, err := parseCell(cell)
		if err != nil {
			return nil, fmt.Errorf("%w: data row %d column %q: %v", core.ErrRecordMalformed, i+1, cols[1], err)
		}
		out[id] = v
	}
	return out, nil
}

func (d *Data) columns(names ...string) ([]string, error) {
	cols := make([]string, len(names))
	var missing []string
	for i, name := range names {
		col, ok := d.FindColumn(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[i] = col
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty cell")
	}
	return strconv.ParseFloat(s, 64)
}
