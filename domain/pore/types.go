package pore

import (
	"porosity/domain/core"
)

// Centroid is a pore's centre of mass in micrometers.
type Centroid struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pore is one cavity measured inside a scanned part.
type Pore struct {
	Centroid Centroid `json:"centroid"`
	Volume   float64  `json:"volume"` // cubic micrometers
}

// Set is the ordered collection of pores detected in one sample.
type Set struct {
	SampleID core.SampleID `json:"sample_id"`
	Pores    []Pore        `json:"pores"`
}

// NewSet copies pores into a new Set.
func NewSet(sampleID core.SampleID, pores []Pore) Set {
	owned := make([]Pore, len(pores))
	copy(owned, pores)
	return Set{SampleID: sampleID, Pores: owned}
}

// Len returns the number of pores
func (s Set) Len() int {
	return len(s.Pores)
}

// Centroids returns the pore centroids in order
func (s Set) Centroids() []Centroid {
	out := make([]Centroid, len(s.Pores))
	for i, p := range s.Pores {
		out[i] = p.Centroid
	}
	return out
}

// Volumes returns the pore volumes in order
func (s Set) Volumes() []float64 {
	out := make([]float64, len(s.Pores))
	for i, p := range s.Pores {
		out[i] = p.Volume
	}
	return out
}

// Axis returns one centroid coordinate per pore; axis is 'x', 'y' or 'z'.
func (s Set) Axis(axis byte) []float64 {
	out := make([]float64, len(s.Pores))
	for i, p := range s.Pores {
		switch axis {
		case 'x', 'X':
			out[i] = p.Centroid.X
		case 'y', 'Y':
			out[i] = p.Centroid.Y
		case 'z', 'Z':
			out[i] = p.Centroid.Z
		}
	}
	return out
}
