package health

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	genuc "github.com/kailas-cloud/medscribe/internal/usecase/generation"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
// Models is informational: a failing generation backend does not degrade Status.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Models map[generation.ModelType]genuc.Availability
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	models    ModelLister
}

// New creates a Service. embedding and models can be nil.
func New(db DBPinger, embedding EmbeddingChecker, models ModelLister) *Service {
	return &Service{db: db, embedding: embedding, models: models}
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult)
		models map[generation.ModelType]genuc.Availability
	)
	record := func(name string, err error) {
		res := CheckOK
		if err != nil {
			res = CheckError
		}
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record("database", s.db.Ping(gctx))
		return nil
	})
	if s.embedding != nil {
		g.Go(func() error {
			record("embedding", s.embedding.HealthCheck(gctx))
			return nil
		})
	}
	if s.models != nil {
		g.Go(func() error {
			models = s.models.ListAvailable(gctx)
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Models: models}
}
