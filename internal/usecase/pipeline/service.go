// Package pipeline runs the analysis and transcript workflows as ordered event streams.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	dompipe "github.com/kailas-cloud/medscribe/internal/domain/pipeline"
	"github.com/kailas-cloud/medscribe/internal/domain/prompt"
	"github.com/kailas-cloud/medscribe/internal/domain/search/request"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
)

// Progress messages.
const (
	msgAnalyzeStarted     = "Начало анализа..."
	msgTranscriptStarted  = "Начало обработки транскрипта..."
	msgSearching          = "Поиск похожих документов..."
	msgPreparing          = "Подготовка анализа..."
	msgAnalyzeGenerating  = "Генерация рекомендаций... Это может занять несколько минут."
	msgTranscriptGenerate = "Генерация медицинского заключения... Это может занять несколько минут."
	msgAnalyzeCompleted   = "Анализ завершен"
	msgTranscriptDone     = "Медицинское заключение готово"
	msgSearchFailed       = "Ошибка при поиске документов: "
	msgAnalyzeGenFailed   = "Ошибка при генерации рекомендаций: "
	msgTranscriptFailed   = "Ошибка при генерации заключения: "
	msgInternalFailed     = "Внутренняя ошибка: "
	msgTimeout            = "Превышено время ожидания ответа от модели. " +
		"Пожалуйста, попробуйте еще раз или используйте другую модель."
)

// MaxInputSize bounds the medical document and transcript length.
const MaxInputSize = 1 << 20

// Default parameters used when the caller sends none.
var (
	analyzeDefaults    = generation.Parameters{generation.ParamTemperature: 0.3, generation.ParamMaxTokens: 4000}
	transcriptDefaults = generation.Parameters{generation.ParamTemperature: 0.3, generation.ParamMaxTokens: 8000}
)

// Options bounds the stages of a run.
type Options struct {
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
	// EventBuffer is the channel capacity; 0 makes every emit wait for the consumer.
	EventBuffer  int
	SystemPrompt string
	// DefaultTopK applies when a request leaves top_k unset.
	DefaultTopK int
}

// AnalyzeRequest asks for recommendations on a case, informed by similar stored cases.
type AnalyzeRequest struct {
	MedicalDoc string
	ModelType  generation.ModelType
	// TopK is nil when the caller left it unset; an explicit value is validated as given.
	TopK       *int
	Filters    map[string]string
	Parameters generation.Parameters
}

// TranscriptRequest asks for a structured clinical note from a dialogue.
type TranscriptRequest struct {
	Transcript string
	ModelType  generation.ModelType
	Parameters generation.Parameters
}

// Service is the pipeline orchestrator.
type Service struct {
	search Searcher
	gen    Generator
	opts   Options
	logger *zap.Logger
}

// New creates an orchestrator.
func New(search Searcher, gen Generator, opts Options, logger *zap.Logger) *Service {
	if opts.RetrievalTimeout <= 0 {
		opts.RetrievalTimeout = 30 * time.Second
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 10 * time.Minute
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = request.DefaultTopK
	}
	if opts.EventBuffer < 0 {
		opts.EventBuffer = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{search: search, gen: gen, opts: opts, logger: logger}
}

// Analyze validates req and starts a run. Validation failures are returned before any event.
// The channel is closed after the terminal event, or early when ctx is cancelled.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (<-chan dompipe.Event, error) {
	if err := validateInput("medical_doc", req.MedicalDoc); err != nil {
		return nil, err
	}
	topK := s.opts.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if err := request.ValidateTopK(topK); err != nil {
		return nil, err
	}
	req.TopK = &topK
	if err := s.gen.Check(req.ModelType); err != nil {
		return nil, err
	}

	r := s.start(ctx, dompipe.ModeAnalyze)
	go r.execute(func() { s.analyze(r, req) })
	return r.events, nil
}

// ProcessTranscript validates req and starts a transcript run. It has no retrieval stage.
func (s *Service) ProcessTranscript(ctx context.Context, req TranscriptRequest) (<-chan dompipe.Event, error) {
	if err := validateInput("transcript", req.Transcript); err != nil {
		return nil, err
	}
	if err := s.gen.Check(req.ModelType); err != nil {
		return nil, err
	}

	r := s.start(ctx, dompipe.ModeTranscript)
	go r.execute(func() { s.transcript(r, req) })
	return r.events, nil
}

func (s *Service) analyze(r *run, req AnalyzeRequest) {
	if !r.emit(dompipe.StatusStarted, msgAnalyzeStarted) {
		return
	}

	if !r.emit(dompipe.StatusSearching, msgSearching) {
		return
	}
	similar, err := timed(r, "searching", func() ([]result.Result, error) {
		sctx, cancel := context.WithTimeout(r.ctx, s.opts.RetrievalTimeout)
		defer cancel()
		return s.search.Search(sctx, req.MedicalDoc, *req.TopK, req.Filters)
	})
	if err != nil {
		r.fail("searching", msgSearchFailed+err.Error(), err)
		return
	}

	if !r.emit(dompipe.StatusPreparing, msgPreparing) {
		return
	}
	text, err := render(func() string { return prompt.Recommendation(req.MedicalDoc, similar) })
	if err != nil {
		r.fail("preparing", msgAnalyzeGenFailed+err.Error(), err)
		return
	}

	if !r.emit(dompipe.StatusGenerating, msgAnalyzeGenerating) {
		return
	}
	res, err := s.generate(r, req.ModelType, text, req.Parameters, analyzeDefaults)
	if err != nil {
		r.fail("generating", generationMessage(msgAnalyzeGenFailed, err), err)
		return
	}

	r.complete(msgAnalyzeCompleted, &dompipe.Payload{
		Mode:             dompipe.ModeAnalyze,
		Text:             res.Text,
		SimilarDocuments: similar,
		Info:             res.Info,
	})
}

func (s *Service) transcript(r *run, req TranscriptRequest) {
	if !r.emit(dompipe.StatusStarted, msgTranscriptStarted) {
		return
	}

	if !r.emit(dompipe.StatusPreparing, msgPreparing) {
		return
	}
	text, err := render(func() string { return prompt.Transcript(req.Transcript) })
	if err != nil {
		r.fail("preparing", msgTranscriptFailed+err.Error(), err)
		return
	}

	if !r.emit(dompipe.StatusGenerating, msgTranscriptGenerate) {
		return
	}
	res, err := s.generate(r, req.ModelType, text, req.Parameters, transcriptDefaults)
	if err != nil {
		r.fail("generating", generationMessage(msgTranscriptFailed, err), err)
		return
	}

	r.complete(msgTranscriptDone, &dompipe.Payload{
		Mode: dompipe.ModeTranscript,
		Text: res.Text,
		Info: res.Info,
	})
}

func (s *Service) generate(
	r *run, t generation.ModelType, text string, params, defaults generation.Parameters,
) (generation.Result, error) {
	if len(params) == 0 {
		params = defaults
	}
	return timed(r, "generating", func() (generation.Result, error) {
		gctx, cancel := context.WithTimeout(r.ctx, s.opts.GenerationTimeout)
		defer cancel()

		res, err := s.gen.Generate(gctx, t, generation.Request{
			Prompt:       text,
			SystemPrompt: s.opts.SystemPrompt,
			Parameters:   params,
		})
		if err != nil && r.ctx.Err() == nil && errors.Is(gctx.Err(), context.DeadlineExceeded) &&
			!errors.Is(err, domain.ErrGenerationTimeout) {
			err = fmt.Errorf("%w: %w", domain.ErrGenerationTimeout, err)
		}
		return res, err
	})
}

func generationMessage(prefix string, err error) string {
	if errors.Is(err, domain.ErrGenerationTimeout) {
		return msgTimeout
	}
	return prefix + err.Error()
}

// render runs a prompt builder, turning a panic into an error.
func render(build func() string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("build prompt: %v: %w", rec, domain.ErrGeneration)
		}
	}()
	return build(), nil
}

func validateInput(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required: %w", field, domain.ErrInvalidRequest)
	}
	if len(v) > MaxInputSize {
		return fmt.Errorf("%s too large (max %d bytes): %w", field, MaxInputSize, domain.ErrInvalidRequest)
	}
	return nil
}
