package feather

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/feather-store/feather/distance"
	"github.com/feather-store/feather/graph"
	"github.com/feather-store/feather/index"
	"github.com/feather-store/feather/index/flat"
	"github.com/feather-store/feather/internal/fs"
	"github.com/feather-store/feather/metadata"
	"github.com/feather-store/feather/persistence"
)

// DefaultModality is the partition used when no modality is given.
const DefaultModality = "text"

// Result is a single search hit. Score is the raw distance under the
// database metric, so lower is better; results are ordered by
// ascending score, with ascending id breaking ties. A zero Result
// (id 0, score 0) pads a result set when fewer than k entries matched.
type Result struct {
	ID    uint64
	Score float32
}

// IsPadding reports whether the result is a padding sentinel rather
// than a real hit.
func (r Result) IsPadding() bool {
	return r.ID == 0 && r.Score == 0
}

// DB is a single-file embedded vector database. Entries are
// fixed-dimension float32 vectors keyed by uint64 id, grouped into
// modality partitions and optionally connected by typed directed links.
//
// DB is safe for concurrent use. Mutations are serialized with a
// single write lock; searches run concurrently under a read lock.
type DB struct {
	mu     sync.RWMutex
	path   string
	opts   Options
	distFn distance.Func
	parts  map[string]*flat.Flat
	links  *graph.Graph
	flock  *fs.FileLock
	closed bool
}

// Open opens the database file at path, creating it when absent.
//
// Creating a new database requires WithDimension. Opening an existing
// file adopts the stored dimension and metric; an explicitly supplied
// dimension must match the stored one or Open fails with
// ErrDimensionConflict. Corrupt files fail with an error wrapping
// ErrCorruptData, leaving the file untouched.
func Open(path string, optFns ...func(*Options)) (*DB, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var flock *fs.FileLock
	if !opts.NoFileLock {
		var err error
		if flock, err = fs.Acquire(path + ".lock"); err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}

	db, err := open(path, opts)
	if err != nil {
		if flock != nil {
			_ = flock.Release()
		}
		return nil, err
	}

	db.flock = flock

	return db, nil
}

func open(path string, opts Options) (*DB, error) {
	if opts.Dimension < 0 {
		return nil, fmt.Errorf("open %s: invalid dimension %d", path, opts.Dimension)
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return load(path, opts)
	case os.IsNotExist(err):
		return create(path, opts)
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
}

func create(path string, opts Options) (*DB, error) {
	if opts.Dimension == 0 {
		return nil, fmt.Errorf("open %s: %w", path, ErrDimensionRequired)
	}

	distFn, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db := &DB{
		path:   path,
		opts:   opts,
		distFn: distFn,
		parts:  make(map[string]*flat.Flat),
		links:  graph.New(),
	}

	// Persist an empty snapshot so a fresh database survives a crash
	// before the first explicit Save.
	if err := db.save(); err != nil {
		return nil, err
	}

	return db, nil
}

func load(path string, opts Options) (*DB, error) {
	var snap *persistence.Snapshot

	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		var err error
		snap, err = persistence.Decode(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if opts.Dimension != 0 && opts.Dimension != snap.Dimension {
		return nil, fmt.Errorf("open %s: %w (stored %d, declared %d)",
			path, ErrDimensionConflict, snap.Dimension, opts.Dimension)
	}

	opts.Dimension = snap.Dimension
	opts.Metric = snap.Metric

	distFn, err := distance.Provider(snap.Metric)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db := &DB{
		path:   path,
		opts:   opts,
		distFn: distFn,
		parts:  make(map[string]*flat.Flat, len(snap.Partitions)),
		links:  graph.New(),
	}

	for _, p := range snap.Partitions {
		part := flat.New(snap.Dimension, distFn)
		for i, id := range p.IDs {
			vec := p.Vectors[i*snap.Dimension : (i+1)*snap.Dimension]
			if err := part.Upsert(id, vec, p.Meta[i]); err != nil {
				return nil, fmt.Errorf("open %s: %w", path, err)
			}
		}
		db.parts[p.Modality] = part
	}

	for _, e := range snap.Edges {
		db.links.LinkTyped(e.From, e.To, e.RelType, e.Weight)
	}

	return db, nil
}

// Dim returns the vector dimension.
func (db *DB) Dim() int { return db.opts.Dimension }

// Metric returns the distance metric the database was created with.
func (db *DB) Metric() distance.Metric { return db.opts.Metric }

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Len returns the total number of entries across all partitions.
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	n := 0
	for _, part := range db.parts {
		n += part.Len()
	}

	return n
}

// Modalities returns the partition names in sorted order.
func (db *DB) Modalities() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.parts))
	for name := range db.parts {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Add inserts or overwrites the entry id in the default partition with
// default metadata.
func (db *DB) Add(id uint64, vector []float32) error {
	return db.AddWithMeta(id, vector, metadata.Default(), DefaultModality)
}

// AddWithMeta inserts or overwrites the entry id in the given modality
// partition. An empty modality means DefaultModality. Overwriting
// replaces the vector and metadata in place; the entry count does not
// change. The vector length must equal the database dimension.
func (db *DB) AddWithMeta(id uint64, vector []float32, meta metadata.Metadata, modality string) error {
	if modality == "" {
		modality = DefaultModality
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}

	part, ok := db.parts[modality]
	if !ok {
		part = flat.New(db.opts.Dimension, db.distFn)
		db.parts[modality] = part
	}

	if err := part.Upsert(id, vector, meta); err != nil {
		// Leave no empty partition behind on a failed first insert.
		if part.Len() == 0 {
			delete(db.parts, modality)
		}
		return err
	}

	return nil
}

// Search returns the k nearest entries to query in the given modality
// partition, ordered by ascending distance with ascending id breaking
// ties. The result slice always has length k: when fewer than k
// entries match, zero Results pad the tail. Search does not modify
// recall statistics; use Touch to record an access.
func (db *DB) Search(query []float32, k int, modality string) ([]Result, error) {
	return db.SearchWithFilter(query, k, nil, modality)
}

// SearchWithFilter is Search restricted to entries matching the
// filter. A nil or empty filter matches every entry.
func (db *DB) SearchWithFilter(query []float32, k int, filter *metadata.Filter, modality string) ([]Result, error) {
	if modality == "" {
		modality = DefaultModality
	}
	if k < 0 {
		k = 0
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}

	results := make([]Result, k)

	part, ok := db.parts[modality]
	if !ok {
		if len(query) != db.opts.Dimension {
			return nil, &index.ErrDimensionMismatch{Expected: db.opts.Dimension, Actual: len(query)}
		}
		return results, nil
	}

	hits, err := part.Search(query, k, filter)
	if err != nil {
		return nil, err
	}

	for i, h := range hits {
		results[i] = Result{ID: h.ID, Score: h.Distance}
	}

	return results, nil
}

// Link records a directed edge from one entry id to another with the
// default relation type. Linking is idempotent and imposes no
// existence check on either id; edges to not-yet-added entries are
// allowed and survive persistence.
func (db *DB) Link(from, to uint64) {
	db.LinkTyped(from, to, graph.DefaultRelType, 1)
}

// LinkTyped records a directed edge with an explicit relation type and
// weight. Linking is idempotent per (from, to, relType); re-linking an
// existing edge is a no-op.
func (db *DB) LinkTyped(from, to uint64, relType string, weight float32) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return
	}

	db.links.LinkTyped(from, to, relType, weight)
}

// LinksFrom returns the ids reachable from id over outgoing edges, in
// ascending order.
func (db *DB) LinksFrom(id uint64) []uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.links.LinksFrom(id)
}

// LinksTo returns the ids with an edge pointing at id, in ascending
// order.
func (db *DB) LinksTo(id uint64) []uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.links.LinksTo(id)
}

// Edges returns the outgoing typed edges of id.
func (db *DB) Edges(id uint64) []graph.Edge {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.links.Edges(id)
}

// Vector returns a copy of the stored vector for id in the given
// modality partition.
func (db *DB) Vector(id uint64, modality string) ([]float32, bool) {
	if modality == "" {
		modality = DefaultModality
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	part, ok := db.parts[modality]
	if !ok {
		return nil, false
	}

	return part.Vector(id)
}

// Metadata returns a copy of the stored metadata for id in the given
// modality partition.
func (db *DB) Metadata(id uint64, modality string) (metadata.Metadata, bool) {
	if modality == "" {
		modality = DefaultModality
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	part, ok := db.parts[modality]
	if !ok {
		return metadata.Metadata{}, false
	}

	return part.Meta(id)
}

// IDs returns the entry ids of the given modality partition in
// ascending order.
func (db *DB) IDs(modality string) []uint64 {
	if modality == "" {
		modality = DefaultModality
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	part, ok := db.parts[modality]
	if !ok {
		return nil
	}

	return part.IDs()
}

// Touch records an access to id: the recall count is incremented and
// the last-recalled timestamp set to now. It reports whether the entry
// exists.
func (db *DB) Touch(id uint64, modality string, now int64) bool {
	if modality == "" {
		modality = DefaultModality
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return false
	}

	part, ok := db.parts[modality]
	if !ok {
		return false
	}

	return part.UpdateMeta(id, func(m *metadata.Metadata) {
		m.RecallCount++
		m.LastRecalledAt = now
	})
}

// UpdateImportance sets the importance weight of id. It reports
// whether the entry exists.
func (db *DB) UpdateImportance(id uint64, modality string, importance float32) bool {
	if modality == "" {
		modality = DefaultModality
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return false
	}

	part, ok := db.parts[modality]
	if !ok {
		return false
	}

	return part.UpdateMeta(id, func(m *metadata.Metadata) {
		m.Importance = importance
	})
}

// AutoLink scans the given modality partition and creates typed edges
// between entries whose similarity (1 / (1 + distance)) reaches the
// threshold, considering the candidates nearest neighbors of each
// entry. It returns the number of edges created.
func (db *DB) AutoLink(modality string, threshold float32, relType string, candidates int) (int, error) {
	if modality == "" {
		modality = DefaultModality
	}
	if relType == "" {
		relType = graph.DefaultRelType
	}
	if candidates <= 0 {
		candidates = 8
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return 0, ErrClosed
	}

	part, ok := db.parts[modality]
	if !ok {
		return 0, nil
	}

	created := 0
	for _, id := range part.IDs() {
		vec, _ := part.Vector(id)

		// One extra, the entry is its own nearest neighbor.
		hits, err := part.Search(vec, candidates+1, nil)
		if err != nil {
			return created, err
		}

		for _, h := range hits {
			if h.ID == id {
				continue
			}
			sim := distance.Similarity(h.Distance)
			if sim < threshold {
				continue
			}
			if db.links.LinkTyped(id, h.ID, relType, sim) {
				created++
			}
		}
	}

	return created, nil
}

// Save atomically persists the database to its file. The previous file
// contents survive any failure.
func (db *DB) Save() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return ErrClosed
	}

	return db.save()
}

func (db *DB) save() error {
	snap := db.snapshot()

	err := persistence.SaveToFile(db.path, func(w io.Writer) error {
		return persistence.Encode(w, snap, db.opts.Compression)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", db.path, err)
	}

	return nil
}

// snapshot captures the database state for encoding. Callers must hold
// at least the read lock.
func (db *DB) snapshot() *persistence.Snapshot {
	snap := &persistence.Snapshot{
		Dimension:  db.opts.Dimension,
		Metric:     db.opts.Metric,
		Partitions: make([]persistence.Partition, 0, len(db.parts)),
		Edges:      db.links.All(),
	}

	for _, name := range db.modalityNames() {
		part := db.parts[name]
		p := persistence.Partition{
			Modality: name,
			IDs:      make([]uint64, 0, part.Len()),
			Vectors:  make([]float32, 0, part.Len()*db.opts.Dimension),
			Meta:     make([]metadata.Metadata, 0, part.Len()),
		}
		part.Iterate(func(id uint64, vector []float32, meta metadata.Metadata) bool {
			p.IDs = append(p.IDs, id)
			p.Vectors = append(p.Vectors, vector...)
			p.Meta = append(p.Meta, meta.Clone())
			return true
		})
		if len(p.IDs) == 0 {
			p.IDs, p.Vectors, p.Meta = nil, nil, nil
		}
		snap.Partitions = append(snap.Partitions, p)
	}

	return snap
}

func (db *DB) modalityNames() []string {
	names := make([]string, 0, len(db.parts))
	for name := range db.parts {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Close releases the file lock and marks the database closed. It does
// not save; call Save first to persist pending changes. Close is
// idempotent.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	if db.flock != nil {
		if err := db.flock.Release(); err != nil && !errors.Is(err, os.ErrClosed) {
			return fmt.Errorf("close %s: %w", db.path, err)
		}
		db.flock = nil
	}

	return nil
}
