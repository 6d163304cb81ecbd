package porestats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"porosity/domain/core"
	"porosity/domain/pore"
)

// DistanceMatrix returns the symmetric N×N Euclidean distance matrix of the
// centroids, with a zero diagonal.
func DistanceMatrix(centroids []pore.Centroid) *mat.SymDense {
	n := len(centroids)
	if n == 0 {
		return &mat.SymDense{}
	}
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, euclidean(centroids[i], centroids[j]))
		}
	}
	return m
}

// NearestNeighborDistances returns, for each pore, the distance to the closest
// other pore of the same sample.
//
// The diagonal of the distance matrix is overwritten with the matrix maximum
// before the row minimum is taken, so a pore never matches itself while two
// distinct coincident pores still report 0. Fewer than two centroids is an
// error. Memory and time are O(N²).
func NearestNeighborDistances(centroids []pore.Centroid) ([]float64, error) {
	n := len(centroids)
	if n < 2 {
		return nil, core.NewInvalidInputError("nearest neighbor distance", "need at least 2 pores")
	}

	m := DistanceMatrix(centroids)
	globalMax := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d := m.At(i, j); d > globalMax {
				globalMax = d
			}
		}
	}
	for i := 0; i < n; i++ {
		m.SetSym(i, i, globalMax)
	}

	distances := make([]float64, n)
	for i := 0; i < n; i++ {
		row := math.Inf(1)
		for j := 0; j < n; j++ {
			if d := m.At(i, j); d < row {
				row = d
			}
		}
		distances[i] = row
	}
	return distances, nil
}

// IsDegenerate reports whether every nearest-neighbour distance is zero, i.e.
// all centroids coincide. This is a property of the data, not an error.
func IsDegenerate(distances []float64) bool {
	if len(distances) == 0 {
		return false
	}
	for _, d := range distances {
		if d != 0 {
			return false
		}
	}
	return true
}

func euclidean(a, b pore.Centroid) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// point is a centroid that remembers its position in the input, since the
// kd-tree reorders its backing slice.
type point struct {
	pore.Centroid
	index int
}

// Compare implements the kdtree.Comparable interface
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the kd-tree
func (p point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{points: p, Dim: d}, kdtree.MedianOfRandoms(plane{points: p, Dim: d}, 100))
}

// plane implements kdtree.SortSlicer for points
type plane struct {
	points
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.points[i].X < p.points[j].X
	case 1:
		return p.points[i].Y < p.points[j].Y
	case 2:
		return p.points[i].Z < p.points[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// NearestNeighborDistancesKD gives the same result as NearestNeighborDistances
// using a kd-tree, in O(N log N) time and O(N) memory.
func NearestNeighborDistancesKD(centroids []pore.Centroid) ([]float64, error) {
	n := len(centroids)
	if n < 2 {
		return nil, core.NewInvalidInputError("nearest neighbor distance", "need at least 2 pores")
	}

	pts := make(points, n)
	for i, c := range centroids {
		pts[i] = point{Centroid: c, index: i}
	}
	tree := kdtree.New(pts, false)

	distances := make([]float64, n)
	for i, c := range centroids {
		query := point{Centroid: c, index: i}
		// Two slots: the pore itself plus its closest neighbour. When several
		// pores share the query position the keeper may hold two of those
		// instead, which still yields 0.
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, query)

		best := math.Inf(1)
		for _, item := range keeper.Heap {
			p, ok := item.Comparable.(point)
			if !ok || p.index == i {
				continue
			}
			if item.Dist < best {
				best = item.Dist
			}
		}
		distances[i] = math.Sqrt(best)
	}
	return distances, nil
}

// NeighborDistances picks the matrix or kd-tree method by pore count. A
// threshold of zero or less always uses the matrix.
func NeighborDistances(centroids []pore.Centroid, kdTreeMinPores int) ([]float64, error) {
	if kdTreeMinPores > 0 && len(centroids) >= kdTreeMinPores {
		return NearestNeighborDistancesKD(centroids)
	}
	return NearestNeighborDistances(centroids)
}
