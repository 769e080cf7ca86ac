// Package chi is the HTTP surface: JSON endpoints for the case store and the
// generation gateway, and NDJSON progress streams for the pipeline.
package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medscribe/internal/domain"
	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	dompipe "github.com/kailas-cloud/medscribe/internal/domain/pipeline"
	"github.com/kailas-cloud/medscribe/internal/domain/search/request"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
	genuc "github.com/kailas-cloud/medscribe/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/medscribe/internal/usecase/health"
	pipeuc "github.com/kailas-cloud/medscribe/internal/usecase/pipeline"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 4 << 20

// CaseStore is the document store surface.
type CaseStore interface {
	Add(ctx context.Context, content string, metadata map[string]any) (domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Document, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, query string, topK int, filters map[string]string) ([]result.Result, error)
}

// Orchestrator starts pipeline runs.
type Orchestrator interface {
	Analyze(ctx context.Context, req pipeuc.AnalyzeRequest) (<-chan dompipe.Event, error)
	ProcessTranscript(ctx context.Context, req pipeuc.TranscriptRequest) (<-chan dompipe.Event, error)
}

// Gateway is the generation gateway surface.
type Gateway interface {
	Generate(ctx context.Context, t generation.ModelType, req generation.Request) (generation.Result, error)
	ListAvailable(ctx context.Context) map[generation.ModelType]genuc.Availability
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	docs          CaseStore
	pipeline      Orchestrator
	gateway       Gateway
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(docs CaseStore, pipeline Orchestrator, gateway Gateway, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		docs:          docs,
		pipeline:      pipeline,
		gateway:       gateway,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers,
	}
}

// Register mounts every route on r.
func (s *Server) Register(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.AddDocument)
		r.Get("/", s.ListDocuments)
		r.Get("/{id}", s.GetDocument)
		r.Delete("/{id}", s.DeleteDocument)
	})
	r.Post("/search", s.SearchDocuments)
	r.Post("/analyze", s.Analyze)
	r.Post("/process_transcript", s.ProcessTranscript)
	r.Post("/generate", s.Generate)
	r.Get("/available_models", s.AvailableModels)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
}

// AddDocument handles POST /documents.
func (s *Server) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req AddDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	doc, err := s.docs.Add(r.Context(), req.Content, req.Metadata)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/documents/"+doc.ID())
	writeJSON(w, http.StatusCreated, documentToResponse(&doc))
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i := range docs {
		items[i] = documentToResponse(&docs[i])
	}
	writeJSON(w, http.StatusOK, items)
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// DeleteDocument handles DELETE /documents/{id}. Unknown IDs are 404.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.docs.Delete(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, CodeDocumentNotFound, domain.ErrDocumentNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Message: fmt.Sprintf("Document %s deleted", id)})
}

// SearchDocuments handles POST /search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	filters, err := filterToStrings(req.FilterMetadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	results, err := s.docs.Search(r.Context(), req.Query, topKOrDefault(req.TopK), filters)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsToItems(results))
}

// Analyze handles POST /analyze.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	filters, err := filterToStrings(req.FilterMetadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	events, err := s.pipeline.Analyze(r.Context(), pipeuc.AnalyzeRequest{
		MedicalDoc: req.MedicalDoc,
		ModelType:  req.ModelType,
		TopK:       req.TopK,
		Filters:    filters,
		Parameters: req.Parameters,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	streamEvents(w, r, events)
}

// ProcessTranscript handles POST /process_transcript.
func (s *Server) ProcessTranscript(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if !decodeBody(w, r, &req) {
		return
	}

	events, err := s.pipeline.ProcessTranscript(r.Context(), pipeuc.TranscriptRequest{
		Transcript: req.Transcript,
		ModelType:  req.ModelType,
		Parameters: req.Parameters,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	streamEvents(w, r, events)
}

// Generate handles POST /generate.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "prompt is required")
		return
	}

	res, err := s.gateway.Generate(r.Context(), req.ModelType, generation.Request{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Parameters:   req.Parameters,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Response: res.Text, ModelInfo: infoToModelInfo(res.Info)})
}

// AvailableModels handles GET /available_models. Only configured backends are listed.
func (s *Server) AvailableModels(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]ModelInfo)
	for t, a := range s.gateway.ListAvailable(r.Context()) {
		if a.Info != nil {
			out[string(t)] = infoToModelInfo(*a.Info)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	var models map[string]ModelStatus
	if len(report.Models) > 0 {
		models = make(map[string]ModelStatus, len(report.Models))
		for t, a := range report.Models {
			models[string(t)] = availabilityToStatus(a)
		}
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks, Models: models})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func topKOrDefault(p *int) int {
	if p == nil {
		return request.DefaultTopK
	}
	return *p
}
