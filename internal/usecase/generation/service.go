package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	"github.com/kailas-cloud/medscribe/internal/metrics"
)

// Availability statuses reported by ListAvailable.
const (
	StatusAvailable     = "available"
	StatusError         = "error"
	StatusNotConfigured = "not_configured"
)

// Availability is the describe outcome for one model type.
type Availability struct {
	Status string
	Info   *generation.Info
	Error  string
}

// Service is the generation gateway over the registry.
type Service struct {
	registry *Registry
	logger   *zap.Logger
}

// New creates a generation gateway.
func New(registry *Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, logger: logger}
}

// Check fails fast for unknown or absent model types.
func (s *Service) Check(t generation.ModelType) error {
	return s.registry.Check(t)
}

// Generate runs req on the backend tagged t. Missing parameters take the backend defaults.
func (s *Service) Generate(ctx context.Context, t generation.ModelType, req generation.Request) (generation.Result, error) {
	e, err := s.registry.resolve(t)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(metricType(t), outcome(err)).Inc()
		return generation.Result{}, err
	}

	req.Parameters = req.Parameters.WithDefaults(e.defaults)

	start := time.Now()
	text, err := e.backend.Generate(ctx, req)
	elapsed := time.Since(start)
	metrics.GenerationDuration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
	metrics.GenerationRequestsTotal.WithLabelValues(string(t), outcome(err)).Inc()

	if err != nil {
		s.logger.Warn("generation failed",
			zap.String("model_type", string(t)),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return generation.Result{}, err
	}

	info, derr := e.backend.Describe(ctx)
	if derr != nil && info.Error == "" {
		info.Error = derr.Error()
	}
	if info.Type == "" {
		info.Type = t
	}

	s.logger.Debug("generation completed",
		zap.String("model_type", string(t)),
		zap.Duration("duration", elapsed),
		zap.Int("chars", len(text)),
	)
	return generation.Result{Text: text, Info: info}, nil
}

// ListAvailable describes every known model type. Configured backends are described concurrently.
func (s *Service) ListAvailable(ctx context.Context) map[generation.ModelType]Availability {
	types := generation.KnownModelTypes()
	slots := make([]Availability, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		e, err := s.registry.resolve(t)
		if err != nil {
			slots[i] = Availability{Status: StatusNotConfigured, Error: err.Error()}
			continue
		}
		g.Go(func() error {
			info, err := e.backend.Describe(gctx)
			a := Availability{Status: StatusAvailable, Info: &info}
			if err != nil {
				a = Availability{Status: StatusError, Info: &info, Error: err.Error()}
			}
			slots[i] = a
			return nil
		})
	}
	_ = g.Wait() // describers never fail the group

	out := make(map[generation.ModelType]Availability, len(types))
	for i, t := range types {
		out[t] = slots[i]
	}
	return out
}

func metricType(t generation.ModelType) string {
	if t.IsKnown() {
		return string(t)
	}
	return "unknown"
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrUnknownModel), errors.Is(err, domain.ErrBackendNotConfigured):
		return "not_configured"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrGenerationTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

var _ Describer = (*Service)(nil)

// String renders an availability for logs.
func (a Availability) String() string {
	if a.Error != "" {
		return fmt.Sprintf("%s: %s", a.Status, a.Error)
	}
	return a.Status
}
