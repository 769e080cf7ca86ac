package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/medscribe/internal/db"
	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
)

// Hash field names. Metadata tags are stored flattened under metaFieldPrefix for FT pre-filtering.
const (
	FieldContent  = "__content"
	FieldVector   = "__vector"
	FieldMetadata = "__metadata"
	FieldAddedAt  = "__added_at"

	metaFieldPrefix = "meta_"
	tagSeparator    = "|"
)

// Layout maps documents onto keys, hash fields and the FT index.
type Layout struct {
	Prefix     string
	IndexName  string
	Filterable []string
}

// Key returns the hash key for a document ID.
func (l Layout) Key(id string) string {
	return l.docPrefix() + id
}

// IDFromKey strips the document key prefix.
func (l Layout) IDFromKey(key string) string {
	return strings.TrimPrefix(key, l.docPrefix())
}

// Pattern is the SCAN glob matching every document key.
func (l Layout) Pattern() string {
	return l.docPrefix() + "*"
}

// TagField returns the indexed hash field for a metadata key.
func (l Layout) TagField(metaKey string) string {
	return metaFieldPrefix + metaKey
}

// IsFilterable reports whether a metadata key has a TAG field in the index.
func (l Layout) IsFilterable(metaKey string) bool {
	for _, k := range l.Filterable {
		if k == metaKey {
			return true
		}
	}
	return false
}

func (l Layout) docPrefix() string {
	return l.Prefix + "doc:"
}

// BuildIndex returns the FT definition: one case-sensitive TAG per filterable key,
// the insertion timestamp and an HNSW/COSINE vector field queried as "vector".
func (l Layout) BuildIndex(dim, m, efConstruct int) (*db.IndexDefinition, error) {
	b := db.NewIndex(l.IndexName).Prefix(l.docPrefix())
	for _, k := range l.Filterable {
		b = b.TagWithOpts(l.TagField(k), tagSeparator, true)
	}
	return b.
		Numeric(FieldAddedAt).
		VectorHNSW(FieldVector, db.DefaultVectorField, dim, db.DistanceCosine, m, efConstruct).
		Build()
}

// EncodeHash converts a document into flat HSET fields.
func (l Layout) EncodeHash(doc *domdoc.Document) (map[string]string, error) {
	md := doc.Metadata()
	if md == nil {
		md = domdoc.Metadata{}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	m := make(map[string]string, 4+len(l.Filterable))
	m[FieldContent] = doc.Content()
	m[FieldVector] = db.EncodeVector(doc.Vector())
	m[FieldMetadata] = string(raw)
	m[FieldAddedAt] = strconv.FormatInt(doc.AddedAt().UnixMicro(), 10)

	for _, k := range l.Filterable {
		if vals := md.Values(k); len(vals) > 0 {
			m[l.TagField(k)] = strings.Join(vals, tagSeparator)
		}
	}
	return m, nil
}

// DecodeHash rebuilds a document from hash fields. Missing vector is allowed: search
// results carry no vector.
func (l Layout) DecodeHash(id string, m map[string]string) (domdoc.Document, error) {
	var md domdoc.Metadata
	if raw := m[FieldMetadata]; raw != "" {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return domdoc.Document{}, fmt.Errorf("unmarshal metadata of %s: %w", id, err)
		}
		norm, err := domdoc.NormalizeMetadata(decoded)
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("metadata of %s: %w", id, err)
		}
		md = norm
	} else {
		md = domdoc.Metadata{}
	}

	var vec []float32
	if blob, ok := m[FieldVector]; ok {
		v, err := db.DecodeVector(blob)
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("vector of %s: %w", id, err)
		}
		vec = v
	}

	var addedAt time.Time
	if s := m[FieldAddedAt]; s != "" {
		us, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("added_at of %s: %w", id, err)
		}
		addedAt = time.UnixMicro(us).UTC()
	}

	return domdoc.Reconstruct(id, m[FieldContent], md, vec, addedAt), nil
}
