package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"porosity/domain/core"
	"porosity/domain/pore"
	"porosity/domain/record"
	"porosity/internal/errors"
	"porosity/internal/porestats"
)

// ComputeRequest is a pore set posted for analysis
type ComputeRequest struct {
	SampleID   string        `json:"sample_id"`
	PartVolume *float64      `json:"part_volume,omitempty"`
	Pores      []PoreRequest `json:"pores"`
}

// PoreRequest is one measured pore
type PoreRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Volume float64 `json:"volume"`
}

// ComputeResponse carries the metrics and the porosity record built from them
type ComputeResponse struct {
	Metrics porestats.Metrics `json:"metrics"`
	Record  record.Record     `json:"record"`
}

// ClassifyResponse carries the labels derived from a record
type ClassifyResponse struct {
	Properties []record.Property `json:"properties"`
}

func (req ComputeRequest) poreSet() (pore.Set, error) {
	id, err := core.ParseSampleID(req.SampleID)
	if err != nil {
		return pore.Set{}, errors.ValidationError(err.Error())
	}
	if len(req.Pores) == 0 {
		return pore.Set{}, errors.ValidationError("pores must not be empty")
	}
	pores := make([]pore.Pore, len(req.Pores))
	for i, p := range req.Pores {
		pores[i] = pore.Pore{Centroid: pore.Centroid{X: p.X, Y: p.Y, Z: p.Z}, Volume: p.Volume}
	}
	return pore.NewSet(id, pores), nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.ValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// handleCompute computes every descriptor of a posted pore set. Engine errors
// answer 422 with the partial metrics that did succeed.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err, nil)
		return
	}
	set, err := req.poreSet()
	if err != nil {
		s.writeError(w, err, nil)
		return
	}

	start := time.Now()
	m, err := porestats.Compute(set, req.PartVolume, s.thresholds)
	s.metrics.ObserveCompute(set.Len(), string(m.SizeWarning), time.Since(start))
	if err != nil {
		s.logger.Debug("compute %s: %v", set.SampleID, err)
		s.writeError(w, err, m)
		return
	}

	rec := record.New(set.SampleID).
		WithProperties(porestats.CentroidProperties(set)...).
		WithProperties(m.Properties()...)
	writeJSON(w, http.StatusOK, ComputeResponse{Metrics: m, Record: rec})
}

// handleClassify derives the size warning and median class labels of a posted
// record from its max and median pore diameters.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var rec record.Record
	if err := decodeBody(w, r, &rec); err != nil {
		s.writeError(w, err, nil)
		return
	}
	props, err := porestats.Classify(rec, s.thresholds)
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	if props == nil {
		props = []record.Property{}
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{Properties: props})
}
