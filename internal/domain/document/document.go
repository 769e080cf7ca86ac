package document

import (
	"fmt"
	"time"
)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 163840 // 160KB

// Document is a case document aggregate (immutable value object).
type Document struct {
	id       string
	content  string
	metadata Metadata
	vector   []float32
	addedAt  time.Time
}

// New validates and creates a Document.
// Content: non-empty, max 160KB. Metadata must already be normalized (see NormalizeMetadata).
func New(id, content string, metadata Metadata, addedAt time.Time) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}

	return Document{
		id:       id,
		content:  content,
		metadata: metadata.Clone(),
		addedAt:  addedAt.UTC(),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, content string, metadata Metadata, vector []float32, addedAt time.Time) Document {
	return Document{id: id, content: content, metadata: metadata, vector: vector, addedAt: addedAt}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Metadata returns the document metadata.
func (d *Document) Metadata() Metadata { return d.metadata }

// Vector returns the embedding vector. It never leaves the service layer.
func (d *Document) Vector() []float32 { return d.vector }

// AddedAt returns the time the document was stored.
func (d *Document) AddedAt() time.Time { return d.addedAt }

// WithVector returns a copy with the given vector set.
func (d *Document) WithVector(v []float32) Document {
	return Document{
		id: d.id, content: d.content, metadata: d.metadata,
		vector: v, addedAt: d.addedAt,
	}
}
