package chi

import (
	"fmt"
	"strconv"

	domdoc "github.com/kailas-cloud/medscribe/internal/domain/document"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	dompipe "github.com/kailas-cloud/medscribe/internal/domain/pipeline"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
	genuc "github.com/kailas-cloud/medscribe/internal/usecase/generation"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AddDocumentRequest is the POST /documents body.
type AddDocumentRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentResponse is a stored case document.
type DocumentResponse struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// DeleteResponse acknowledges a removed document.
type DeleteResponse struct {
	Message string `json:"message"`
}

// SearchRequest is the POST /search body. TopK defaults to 3.
type SearchRequest struct {
	Query          string         `json:"query"`
	TopK           *int           `json:"top_k,omitempty"`
	FilterMetadata map[string]any `json:"filter_metadata,omitempty"`
}

// SearchResultItem is one hit. Similarity is in [0, 1], higher is closer.
type SearchResultItem struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// AnalyzeRequest is the POST /analyze body.
type AnalyzeRequest struct {
	MedicalDoc     string                `json:"medical_doc"`
	ModelType      generation.ModelType  `json:"model_type"`
	TopK           *int                  `json:"top_k,omitempty"`
	FilterMetadata map[string]any        `json:"filter_metadata,omitempty"`
	Parameters     generation.Parameters `json:"parameters,omitempty"`
}

// TranscriptRequest is the POST /process_transcript body.
type TranscriptRequest struct {
	Transcript string                `json:"transcript"`
	ModelType  generation.ModelType  `json:"model_type"`
	Parameters generation.Parameters `json:"parameters,omitempty"`
}

// GenerateRequest is the POST /generate body.
type GenerateRequest struct {
	Prompt       string                `json:"prompt"`
	SystemPrompt string                `json:"system_prompt,omitempty"`
	ModelType    generation.ModelType  `json:"model_type"`
	Parameters   generation.Parameters `json:"parameters,omitempty"`
}

// GenerateResponse carries the generated text and the answering backend.
type GenerateResponse struct {
	Response  string    `json:"response"`
	ModelInfo ModelInfo `json:"model_info"`
}

// ModelInfo describes a generation backend.
type ModelInfo struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	IsLocal         bool     `json:"is_local"`
	ModelPath       string   `json:"model_path,omitempty"`
	APIBase         string   `json:"api_base,omitempty"`
	AvailableModels []string `json:"available_models,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// ModelStatus is one entry of the health report's model map.
type ModelStatus struct {
	Status string     `json:"status"`
	Info   *ModelInfo `json:"info,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]string      `json:"checks"`
	Models map[string]ModelStatus `json:"models,omitempty"`
}

// StreamEvent is one NDJSON line of /analyze and /process_transcript.
// Only the fields of the run's mode are set on the completed line.
type StreamEvent struct {
	Status           string             `json:"status"`
	Message          string             `json:"message,omitempty"`
	Recommendations  *string            `json:"recommendations,omitempty"`
	StructuredDoc    *string            `json:"structured_doc,omitempty"`
	SimilarDocuments []SearchResultItem `json:"similar_documents,omitempty"`
	ModelInfo        *ModelInfo         `json:"model_info,omitempty"`
}

func documentToResponse(d *domdoc.Document) DocumentResponse {
	md := map[string]any(d.Metadata().Clone())
	if md == nil {
		md = map[string]any{}
	}
	return DocumentResponse{ID: d.ID(), Content: d.Content(), Metadata: md}
}

func resultsToItems(rs []result.Result) []SearchResultItem {
	items := make([]SearchResultItem, len(rs))
	for i := range rs {
		doc := rs[i].Document()
		resp := documentToResponse(&doc)
		items[i] = SearchResultItem{
			ID:         resp.ID,
			Content:    resp.Content,
			Metadata:   resp.Metadata,
			Similarity: rs[i].Similarity(),
		}
	}
	return items
}

func infoToModelInfo(info generation.Info) ModelInfo {
	mi := ModelInfo{
		Name:            info.Name,
		Type:            string(info.Type),
		IsLocal:         info.IsLocal,
		APIBase:         info.APIBase,
		AvailableModels: info.AvailableModels,
		Error:           info.Error,
	}
	if info.IsLocal {
		mi.ModelPath = info.Model
	}
	return mi
}

func availabilityToStatus(a genuc.Availability) ModelStatus {
	st := ModelStatus{Status: a.Status, Error: a.Error}
	if a.Info != nil {
		mi := infoToModelInfo(*a.Info)
		st.Info = &mi
	}
	return st
}

func eventToStream(ev dompipe.Event) StreamEvent {
	out := StreamEvent{Status: string(ev.Status), Message: ev.Message}
	p := ev.Payload
	if p == nil {
		return out
	}

	mi := infoToModelInfo(p.Info)
	out.ModelInfo = &mi
	text := p.Text
	switch p.Mode {
	case dompipe.ModeAnalyze:
		out.Recommendations = &text
		out.SimilarDocuments = resultsToItems(p.SimilarDocuments)
	case dompipe.ModeTranscript:
		out.StructuredDoc = &text
	}
	return out
}

// filterToStrings converts JSON filter values to their stored tag form.
// Only scalars are accepted.
func filterToStrings(in map[string]any) (map[string]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = t
		case bool:
			out[k] = strconv.FormatBool(t)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("filter_metadata %q must be a string, number or bool", k)
		}
	}
	return out, nil
}
