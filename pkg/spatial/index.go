// Package spatial provides nearest-neighbour queries against a static set
// of 3-D points. The index is built once and is read-only afterwards, so a
// single Index can serve concurrent queries.
package spatial

import (
	"math"
	"runtime"
	"sync"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"

	"pointfit/pkg/pointset"
)

// minChunk is the smallest number of queries handed to one worker.
const minChunk = 256

// Point wraps r3.Vector to satisfy kdtree.Comparable
type Point r3.Vector

// Compare implements the kdtree.Comparable interface
func (p Point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Point)
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

// Dims returns the number of dimensions for the KD-tree
func (p Point) Dims() int { return pointset.Dims }

// Distance returns the squared Euclidean distance between two points
func (p Point) Distance(c kdtree.Comparable) float64 {
	q := c.(Point)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// Points is a collection of Point that satisfies kdtree.Interface
type Points []Point

func (p Points) Index(i int) kdtree.Comparable         { return p[i] }
func (p Points) Len() int                              { return len(p) }
func (p Points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p Points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{Points: p, Dim: d}, kdtree.MedianOfRandoms(plane{Points: p, Dim: d}, 100))
}

// plane implements sort.Interface and kdtree.SortSlicer for Points
type plane struct {
	Points
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.Points[i].X < p.Points[j].X
	case 1:
		return p.Points[i].Y < p.Points[j].Y
	case 2:
		return p.Points[i].Z < p.Points[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{Points: p.Points[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.Points[i], p.Points[j] = p.Points[j], p.Points[i]
}

// Index answers nearest-neighbour queries against a fixed point set.
type Index struct {
	tree    *kdtree.Tree
	size    int
	workers int
}

// Build constructs an index over points. The caller's slice is copied
// because the tree reorders its input while partitioning.
func Build(points []r3.Vector) (*Index, error) {
	if err := pointset.Validate(points); err != nil {
		return nil, err
	}

	data := make(Points, len(points))
	for i, p := range points {
		data[i] = Point(p)
	}

	return &Index{
		tree:    kdtree.New(data, false),
		size:    len(points),
		workers: 1,
	}, nil
}

// WithWorkers sets how many goroutines a batch query may use. Values below
// one select runtime.NumCPU(). The index itself is returned for chaining.
func (ix *Index) WithWorkers(n int) *Index {
	if n < 1 {
		n = runtime.NumCPU()
	}
	ix.workers = n
	return ix
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return ix.size
}

// Nearest returns the indexed point closest to q and its Euclidean distance.
func (ix *Index) Nearest(q r3.Vector) (r3.Vector, float64) {
	c, d2 := ix.tree.Nearest(Point(q))
	return r3.Vector(c.(Point)), math.Sqrt(d2)
}

// Query returns, for each query point, the Euclidean distance to its
// nearest neighbour in the index.
func (ix *Index) Query(queries []r3.Vector) []float64 {
	dst := make([]float64, len(queries))
	ix.QueryInto(dst, queries)
	return dst
}

// QueryInto is Query writing into dst, which must have len(queries) elements.
func (ix *Index) QueryInto(dst []float64, queries []r3.Vector) {
	if len(dst) != len(queries) {
		panic("spatial: destination length mismatch")
	}

	workers := ix.workers
	if limit := (len(queries) + minChunk - 1) / minChunk; workers > limit {
		workers = limit
	}
	if workers <= 1 {
		ix.queryRange(dst, queries)
		return
	}

	// Split the batch into contiguous chunks so results keep query order
	chunk := (len(queries) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(queries); start += chunk {
		end := start + chunk
		if end > len(queries) {
			end = len(queries)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			ix.queryRange(dst[start:end], queries[start:end])
		}(start, end)
	}
	wg.Wait()
}

func (ix *Index) queryRange(dst []float64, queries []r3.Vector) {
	for i, q := range queries {
		_, d2 := ix.tree.Nearest(Point(q))
		dst[i] = math.Sqrt(d2)
	}
}
