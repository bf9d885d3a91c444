// Package flat provides an exact brute-force vector index.
//
// Vectors are stored in a single contiguous float32 slice for cache-friendly
// scans. Every search visits all candidate rows, so results are exact; a
// per-context-type roaring bitmap narrows the candidate set when a type
// filter is present, and large unfiltered scans are chunked across CPUs.
// Both paths produce the identical ranking: ascending distance, ties broken
// by ascending id.
package flat

import (
	"runtime"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/feather-store/feather/distance"
	"github.com/feather-store/feather/index"
	"github.com/feather-store/feather/internal/queue"
	"github.com/feather-store/feather/metadata"
)

// parallelScanThreshold is the row count above which an unfiltered scan is
// split across CPUs. Chunked collection keeps the merged output identical to
// a serial scan.
const parallelScanThreshold = 4096

// Flat is an exact brute-force index over one modality partition.
// It is not safe for concurrent use; the owning database serializes access.
type Flat struct {
	dim    int
	distFn distance.Func

	ids     []uint64
	vectors []float32 // len(ids) * dim, row-major
	meta    []metadata.Metadata
	byID    map[uint64]int

	// typeRows maps a context type to the bitmap of row positions holding it.
	typeRows map[uint8]*roaring.Bitmap
}

// New creates an empty flat index with the given dimension and distance
// function. The dimension must be > 0.
func New(dim int, distFn distance.Func) *Flat {
	return &Flat{
		dim:      dim,
		distFn:   distFn,
		byID:     make(map[uint64]int),
		typeRows: make(map[uint8]*roaring.Bitmap),
	}
}

// Dimension returns the fixed vector dimensionality of the index.
func (f *Flat) Dimension() int { return f.dim }

// Len returns the number of stored entries.
func (f *Flat) Len() int { return len(f.ids) }

// Upsert inserts an entry or overwrites the existing entry with the same id
// (last-write-wins). The index is unchanged when the vector length does not
// match the index dimension.
func (f *Flat) Upsert(id uint64, vector []float32, meta metadata.Metadata) error {
	if len(vector) != f.dim {
		return &index.ErrDimensionMismatch{Expected: f.dim, Actual: len(vector)}
	}

	if row, ok := f.byID[id]; ok {
		copy(f.vectors[row*f.dim:(row+1)*f.dim], vector)
		f.retype(row, f.meta[row].ContextType, meta.ContextType)
		f.meta[row] = meta
		return nil
	}

	row := len(f.ids)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vector...)
	f.meta = append(f.meta, meta)
	f.byID[id] = row
	f.typeBitmap(meta.ContextType).Add(uint32(row))
	return nil
}

// Vector returns a copy of the stored vector for id.
func (f *Flat) Vector(id uint64) ([]float32, bool) {
	row, ok := f.byID[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, f.dim)
	copy(out, f.vectors[row*f.dim:(row+1)*f.dim])
	return out, true
}

// Meta returns a copy of the metadata stored for id.
func (f *Flat) Meta(id uint64) (metadata.Metadata, bool) {
	row, ok := f.byID[id]
	if !ok {
		return metadata.Metadata{}, false
	}
	return f.meta[row].Clone(), true
}

// UpdateMeta applies update to the metadata stored for id.
// It reports whether the id exists.
func (f *Flat) UpdateMeta(id uint64, update func(*metadata.Metadata)) bool {
	row, ok := f.byID[id]
	if !ok {
		return false
	}
	before := f.meta[row].ContextType
	update(&f.meta[row])
	if after := f.meta[row].ContextType; after != before {
		f.retype(row, before, after)
	}
	return true
}

// Contains reports whether id is stored in the index.
func (f *Flat) Contains(id uint64) bool {
	_, ok := f.byID[id]
	return ok
}

// IDs returns all stored ids in ascending order.
func (f *Flat) IDs() []uint64 {
	out := make([]uint64, len(f.ids))
	copy(out, f.ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Iterate calls fn for every entry in row order until fn returns false.
// The vector slice passed to fn aliases index storage and must not be retained.
func (f *Flat) Iterate(fn func(id uint64, vector []float32, meta metadata.Metadata) bool) {
	for row, id := range f.ids {
		if !fn(id, f.vectors[row*f.dim:(row+1)*f.dim], f.meta[row]) {
			return
		}
	}
}

// Search returns up to k entries matching the filter, ordered by ascending
// distance to the query with ties broken by ascending id. k larger than the
// candidate count returns all candidates; k <= 0 returns nothing.
func (f *Flat) Search(query []float32, k int, filter *metadata.Filter) ([]index.SearchResult, error) {
	if len(query) != f.dim {
		return nil, &index.ErrDimensionMismatch{Expected: f.dim, Actual: len(query)}
	}
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}

	var items []queue.Item
	switch {
	case filter != nil && filter.ContextType != nil:
		items = f.scanTyped(query, k, filter)
	case filter.Empty() && len(f.ids) >= parallelScanThreshold:
		items = f.scanParallel(query, k)
	default:
		items = f.scanRange(query, k, filter, 0, len(f.ids))
	}

	out := make([]index.SearchResult, len(items))
	for i, it := range items {
		out[i] = index.SearchResult{ID: it.ID, Distance: it.Distance}
	}
	return out, nil
}

// scanTyped visits only rows holding the filtered context type.
func (f *Flat) scanTyped(query []float32, k int, filter *metadata.Filter) []queue.Item {
	rows, ok := f.typeRows[*filter.ContextType]
	if !ok || rows.IsEmpty() {
		return nil
	}

	best := queue.NewKBest(k)
	it := rows.Iterator()
	for it.HasNext() {
		row := int(it.Next())
		if !filter.Matches(f.meta[row]) {
			continue
		}
		best.Push(f.ids[row], f.distFn(query, f.vectors[row*f.dim:(row+1)*f.dim]))
	}
	return best.Results()
}

// scanRange performs a serial scan over rows [lo, hi).
func (f *Flat) scanRange(query []float32, k int, filter *metadata.Filter, lo, hi int) []queue.Item {
	best := queue.NewKBest(k)
	for row := lo; row < hi; row++ {
		if !filter.Matches(f.meta[row]) {
			continue
		}
		best.Push(f.ids[row], f.distFn(query, f.vectors[row*f.dim:(row+1)*f.dim]))
	}
	return best.Results()
}

// scanParallel splits an unfiltered scan into per-CPU chunks and merges the
// per-chunk top-k sets. The merge sees every candidate that could appear in
// the global top-k, so the output matches the serial scan exactly.
func (f *Flat) scanParallel(query []float32, k int) []queue.Item {
	workers := runtime.NumCPU()
	if workers > len(f.ids) {
		workers = len(f.ids)
	}

	chunk := (len(f.ids) + workers - 1) / workers
	partial := make([][]queue.Item, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		lo := w * chunk
		hi := lo + chunk
		if hi > len(f.ids) {
			hi = len(f.ids)
		}
		g.Go(func() error {
			partial[w] = f.scanRange(query, k, nil, lo, hi)
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	best := queue.NewKBest(k)
	for _, items := range partial {
		for _, it := range items {
			best.Push(it.ID, it.Distance)
		}
	}
	return best.Results()
}

func (f *Flat) typeBitmap(t uint8) *roaring.Bitmap {
	bm, ok := f.typeRows[t]
	if !ok {
		bm = roaring.New()
		f.typeRows[t] = bm
	}
	return bm
}

func (f *Flat) retype(row int, from, to uint8) {
	if from == to {
		return
	}
	if bm, ok := f.typeRows[from]; ok {
		bm.Remove(uint32(row))
	}
	f.typeBitmap(to).Add(uint32(row))
}
