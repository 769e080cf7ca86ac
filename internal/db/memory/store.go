// Package memory is an in-process db.Store for local runs and tests.
// KNN search is an exact scan over every hash covered by the index prefixes.
package memory

import (
	"context"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/medscribe/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

// Store keeps hashes, plain values and index definitions in maps guarded by one RWMutex.
type Store struct {
	mu      sync.RWMutex
	hashes  map[string]map[string]string
	kv      map[string]kvEntry
	indexes map[string]*db.IndexDefinition
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		hashes:  make(map[string]map[string]string),
		kv:      make(map[string]kvEntry),
		indexes: make(map[string]*db.IndexDefinition),
		now:     time.Now,
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// --- hashes ---

// HSet merges fields into the hash at key.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// HGetAll returns a copy of the hash. A missing key yields db.ErrKeyNotFound.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return copyHash(h), nil
}

// HGetAllMulti returns one map per key; missing keys yield empty maps.
func (s *Store) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		if h, ok := s.hashes[key]; ok {
			out[i] = copyHash(h)
		} else {
			out[i] = map[string]string{}
		}
	}
	return out, nil
}

// Del removes a hash or a plain value and reports whether anything was removed.
func (s *Store) Del(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, inHash := s.hashes[key]
	_, inKV := s.kv[key]
	delete(s.hashes, key)
	delete(s.kv, key)
	return inHash || inKV, nil
}

// Exists reports whether key holds a hash or a live value.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	_, ok := s.liveValue(key)
	return ok, nil
}

// Scan returns the keys matching a glob pattern, sorted.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	for k := range s.kv {
		if _, live := s.liveValue(k); !live {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// --- plain values ---

// Get returns the value at key or db.ErrKeyNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.liveValue(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value without expiration.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv[key] = kvEntry{value: append([]byte(nil), value...)}
	return nil
}

// SetWithTTL stores a value that disappears after ttl.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.kv[key] = kvEntry{value: append([]byte(nil), value...), expiresAt: s.now().Add(ttl)}
	return nil
}

// liveValue must be called with mu held.
func (s *Store) liveValue(key string) (kvEntry, bool) {
	e, ok := s.kv[key]
	if !ok {
		return kvEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		return kvEntry{}, false
	}
	return e, true
}

// --- indexes ---

// CreateIndex registers an index definition. Documents are matched at query time.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	cp.Prefixes = append([]string(nil), def.Prefixes...)
	cp.Fields = append([]db.IndexField(nil), def.Fields...)
	s.indexes[def.Name] = &cp
	return nil
}

// DropIndex removes an index definition; hashes are kept.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether an index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.indexes[name]
	return ok, nil
}

// --- search ---

// SearchKNN ranks every indexed hash by cosine similarity to q.Vector.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}

	attr := q.VectorField
	if attr == "" {
		attr = db.DefaultVectorField
	}
	vf, ok := def.Field(attr)
	if !ok || vf.Type != db.IndexFieldVector {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("unknown vector field %q", attr)}
	}
	if vf.VectorDim != len(q.Vector) {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("query vector dim %d, index dim %d", len(q.Vector), vf.VectorDim)}
	}

	var entries []db.SearchEntry
	for key, h := range s.hashes {
		if !hasAnyPrefix(key, def.Prefixes) {
			continue
		}
		blob, ok := h[vf.Name]
		if !ok {
			continue
		}
		vec, err := db.DecodeVector(blob)
		if err != nil || len(vec) != len(q.Vector) {
			continue
		}
		if !matchesFilters(def, h, q) {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  db.ScoreFromDistance(cosineDistance(q.Vector, vec)),
			Fields: returnFields(h, q.ReturnFields),
		})
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].Score != entries[b].Score {
			return entries[a].Score > entries[b].Score
		}
		return entries[a].Key < entries[b].Key
	})

	total := len(entries)
	if len(entries) > q.K {
		entries = entries[:q.K]
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

func matchesFilters(def *db.IndexDefinition, h map[string]string, q *db.KNNQuery) bool {
	for _, cond := range q.Filters.Must() {
		f, ok := def.Field(cond.Key())
		if !ok || f.Type != db.IndexFieldTag {
			return false
		}
		if !tagContains(h[f.Name], cond.Match(), f) {
			return false
		}
	}
	return true
}

func tagContains(raw, want string, f *db.IndexField) bool {
	if raw == "" {
		return false
	}
	sep := f.TagSeparator
	if sep == "" {
		sep = ","
	}
	for _, v := range strings.Split(raw, sep) {
		v = strings.TrimSpace(v)
		if f.TagCaseSensitive {
			if v == want {
				return true
			}
		} else if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// cosineDistance matches the FT COSINE metric: 1 - cos(a, b). Zero vectors are at distance 1.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func returnFields(h map[string]string, fields []string) map[string]string {
	if len(fields) == 0 {
		return copyHash(h)
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := h[f]; ok {
			out[f] = v
		}
	}
	return out
}

func hasAnyPrefix(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func copyHash(h map[string]string) map[string]string {
	c := make(map[string]string, len(h))
	for k, v := range h {
		c[k] = v
	}
	return c
}
