package pore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSet_CopiesInput(t *testing.T) {
	pores := []Pore{
		{Centroid: Centroid{X: 0, Y: 0, Z: 0}, Volume: 1},
		{Centroid: Centroid{X: 1, Y: 2, Z: 3}, Volume: 8},
	}
	set := NewSet("P001_B001_A01", pores)
	pores[0].Volume = 100

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []float64{1, 8}, set.Volumes())
	assert.Equal(t, []float64{0, 1}, set.Axis('x'))
	assert.Equal(t, []float64{0, 2}, set.Axis('Y'))
	assert.Equal(t, []float64{0, 3}, set.Axis('z'))
	assert.Equal(t, Centroid{X: 1, Y: 2, Z: 3}, set.Centroids()[1])
}
