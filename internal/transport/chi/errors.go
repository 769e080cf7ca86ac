package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/logger"
)

// ErrorCode is the machine-readable error kind.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeValidationFailed     ErrorCode = "validation_failed"
	CodeUnknownModel         ErrorCode = "unknown_model"
	CodeBackendNotConfigured ErrorCode = "backend_not_configured"
	CodeDocumentNotFound     ErrorCode = "document_not_found"
	CodeEmbeddingFailed      ErrorCode = "embedding_failed"
	CodeBackendUnavailable   ErrorCode = "backend_unavailable"
	CodeRetrievalFailed      ErrorCode = "retrieval_failed"
	CodeGenerationTimeout    ErrorCode = "generation_timeout"
	CodeGenerationFailed     ErrorCode = "generation_failed"
	CodeStoreWriteFailed     ErrorCode = "store_write_failed"
	CodeInternalError        ErrorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// defaultErrorHandlers is checked in order; the first match wins.
var defaultErrorHandlers = []errorHandler{
	detailedHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
	detailedHandler(domain.ErrUnknownModel, http.StatusBadRequest, CodeUnknownModel),
	sentinelHandler(domain.ErrBackendNotConfigured, http.StatusBadRequest, CodeBackendNotConfigured),
	sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
	sentinelHandler(domain.ErrEmbedding, http.StatusUnprocessableEntity, CodeEmbeddingFailed),
	sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, CodeBackendUnavailable),
	sentinelHandler(domain.ErrRetrieval, http.StatusServiceUnavailable, CodeRetrievalFailed),
	sentinelHandler(domain.ErrGenerationTimeout, http.StatusGatewayTimeout, CodeGenerationTimeout),
	sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, CodeGenerationFailed),
	sentinelHandler(domain.ErrStoreWrite, http.StatusInternalServerError, CodeStoreWriteFailed),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler answers with the sentinel's own text, hiding wrapped internals.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// detailedHandler answers with the full error text. Only for caller-input errors.
func detailedHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
