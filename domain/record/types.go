// Package record models a per-sample material record: identifiers, process
// provenance and named properties. Records are values; every operation returns
// a new Record and leaves its inputs untouched.
package record

import (
	"encoding/json"

	"porosity/domain/core"
)

// SampleIDName is the identifier name that carries the sample ID.
const SampleIDName = "Sample ID"

// Identifier is a named ID attached to a record
type Identifier struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Extra Fields `json:"-"`
}

// Software names the program that produced a property
type Software struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Method describes how a property was measured or computed
type Method struct {
	Name     string    `json:"name,omitempty"`
	Software *Software `json:"software,omitempty"`
	Extra    Fields    `json:"-"`
}

// Property is a named measurement with units
type Property struct {
	Name    string  `json:"name"`
	Scalars Value   `json:"scalars"`
	Units   string  `json:"units,omitempty"`
	Method  *Method `json:"method,omitempty"`
	Extra   Fields  `json:"-"` // conditions, dataType, references, tags, ...
}

// Detail is one parameter of a process step
type Detail struct {
	Name    string `json:"name"`
	Scalars Value  `json:"scalars"`
	Extra   Fields `json:"-"`
}

// ProcessStep records one preparation stage (printing, heat treatment, ...)
type ProcessStep struct {
	Name    string   `json:"name"`
	Details []Detail `json:"details,omitempty"`
	Extra   Fields   `json:"-"`
}

// Record is one sample's structured material record.
type Record struct {
	Category    string            `json:"category,omitempty"`
	UID         string            `json:"uid,omitempty"`
	IDs         []Identifier      `json:"ids,omitempty"`
	Names       []string          `json:"names,omitempty"`
	References  []json.RawMessage `json:"references,omitempty"`
	Preparation []ProcessStep     `json:"preparation,omitempty"`
	Properties  []Property        `json:"properties,omitempty"`
	SubSystems  []json.RawMessage `json:"subSystems,omitempty"`
	Extra       Fields            `json:"-"` // chemicalFormula, composition, tags, ...
}

// DefaultCategory is written on records created by this module.
const DefaultCategory = "system.chemical"

// Preparation step and detail names used by printed-sample records.
const (
	PrintingStep        = "printing"
	RowDetail           = "row"
	ColumnDetail        = "column"
	HeatTreatmentStep   = "Plate heat treatment"
	HeatTreatmentDetail = "Heat treatment performed"
)

// New returns an empty record identified by sampleID.
func New(sampleID core.SampleID) Record {
	return Record{
		Category: DefaultCategory,
		IDs:      []Identifier{{Name: SampleIDName, Value: sampleID.String()}},
	}
}

// SampleID returns the value of the "Sample ID" identifier.
func (r Record) SampleID() (core.SampleID, bool) {
	for _, id := range r.IDs {
		if id.Name == SampleIDName && id.Value != "" {
			return core.SampleID(id.Value), true
		}
	}
	return "", false
}

// Property looks a property up by exact name
func (r Record) Property(name string) (Property, bool) {
	for _, p := range r.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Step looks a preparation step up by exact name
func (r Record) Step(name string) (ProcessStep, bool) {
	for _, s := range r.Preparation {
		if s.Name == name {
			return s, true
		}
	}
	return ProcessStep{}, false
}

// Detail looks a detail of the step up by exact name
func (s ProcessStep) Detail(name string) (Detail, bool) {
	for _, d := range s.Details {
		if d.Name == name {
			return d, true
		}
	}
	return Detail{}, false
}

// HasProperties reports whether the record carries any property
func (r Record) HasProperties() bool {
	return len(r.Properties) > 0
}
