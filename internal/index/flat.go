// Package index holds the exact nearest-neighbor index over the answer corpus.
package index

import (
	"container/heap"
	"fmt"
	"sort"
)

// Metric selects how vectors are compared.
type Metric int

const (
	// InnerProduct scores by dot product; higher is nearer.
	InnerProduct Metric = 0
	// L2 scores by squared euclidean distance; lower is nearer.
	L2 Metric = 1
)

func (m Metric) String() string {
	switch m {
	case InnerProduct:
		return "inner_product"
	case L2:
		return "l2"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// Hit is one search candidate.
type Hit struct {
	Pos   int
	Score float32
}

// Flat stores vectors contiguously and searches them exhaustively.
// A Flat is immutable once built and safe for concurrent reads.
type Flat struct {
	dim    int
	metric Metric
	data   []float32
}

// NewFlat builds an index from row-major vectors of dimension dim.
func NewFlat(dim int, metric Metric, data []float32) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if metric != InnerProduct && metric != L2 {
		return nil, fmt.Errorf("unsupported %s", metric)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("%d values do not divide into vectors of dimension %d", len(data), dim)
	}
	return &Flat{dim: dim, metric: metric, data: data}, nil
}

// FromVectors builds an index from individual vectors.
func FromVectors(metric Metric, vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors")
	}
	dim := len(vectors[0])
	data := make([]float32, 0, dim*len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		data = append(data, v...)
	}
	return NewFlat(dim, metric, data)
}

func (f *Flat) Dim() int { return f.dim }

func (f *Flat) Len() int { return len(f.data) / f.dim }

func (f *Flat) Metric() Metric { return f.metric }

// Vector returns the stored vector at pos. The slice must not be modified.
func (f *Flat) Vector(pos int) []float32 {
	return f.data[pos*f.dim : (pos+1)*f.dim]
}

// Search returns up to k hits ordered nearest-first. Equal scores are
// ordered by position. k larger than Len is clamped.
func (f *Flat) Search(q []float32, k int) ([]Hit, error) {
	if len(q) != f.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(q), f.dim)
	}
	n := f.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	h := &worstFirst{metric: f.metric, hits: make([]Hit, 0, k)}
	for pos := 0; pos < n; pos++ {
		hit := Hit{Pos: pos, Score: f.score(q, pos)}
		if h.Len() < k {
			heap.Push(h, hit)
			continue
		}
		if nearer(f.metric, hit, h.hits[0]) {
			h.hits[0] = hit
			heap.Fix(h, 0)
		}
	}

	out := h.hits
	sort.Slice(out, func(i, j int) bool { return nearer(f.metric, out[i], out[j]) })
	return out, nil
}

func (f *Flat) score(q []float32, pos int) float32 {
	v := f.Vector(pos)
	var sum float32
	if f.metric == L2 {
		for i := range v {
			d := v[i] - q[i]
			sum += d * d
		}
		return sum
	}
	for i := range v {
		sum += v[i] * q[i]
	}
	return sum
}

// nearer reports whether a ranks before b.
func nearer(m Metric, a, b Hit) bool {
	if a.Score != b.Score {
		if m == L2 {
			return a.Score < b.Score
		}
		return a.Score > b.Score
	}
	return a.Pos < b.Pos
}

// worstFirst keeps the current top-k with the farthest hit at the root.
type worstFirst struct {
	metric Metric
	hits   []Hit
}

func (h *worstFirst) Len() int           { return len(h.hits) }
func (h *worstFirst) Less(i, j int) bool { return nearer(h.metric, h.hits[j], h.hits[i]) }
func (h *worstFirst) Swap(i, j int)      { h.hits[i], h.hits[j] = h.hits[j], h.hits[i] }
func (h *worstFirst) Push(x any)         { h.hits = append(h.hits, x.(Hit)) }
func (h *worstFirst) Pop() any {
	old := h.hits
	n := len(old)
	x := old[n-1]
	h.hits = old[:n-1]
	return x
}
