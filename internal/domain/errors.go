package domain

import "errors"

var (
	// ErrInvalidRequest signals malformed caller input (bad top_k, empty content, unknown filter key).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDocumentNotFound signals a missing case document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrAlreadyExists signals a duplicate document id.
	ErrAlreadyExists = errors.New("already exists")

	// ErrStoreWrite signals that the index write for a document failed.
	ErrStoreWrite = errors.New("store write failed")
	// ErrEmbedding signals that the embedding function rejected its input or failed.
	ErrEmbedding = errors.New("embedding failed")
	// ErrRetrieval signals that the store is unreachable or the query failed.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrUnknownModel signals a model_type tag outside the registry.
	ErrUnknownModel = errors.New("unknown model type")
	// ErrBackendNotConfigured signals a known backend with no credential or endpoint.
	ErrBackendNotConfigured = errors.New("backend not configured")
	// ErrBackendUnavailable signals a configured backend whose liveness probe failed.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrGenerationTimeout signals that the backend exceeded its time bound.
	ErrGenerationTimeout = errors.New("generation timed out")
	// ErrGeneration signals a failed, malformed or empty backend response.
	ErrGeneration = errors.New("generation failed")
)
