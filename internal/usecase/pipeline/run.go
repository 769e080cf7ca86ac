package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medscribe/internal/domain"
	dompipe "github.com/kailas-cloud/medscribe/internal/domain/pipeline"
	"github.com/kailas-cloud/medscribe/internal/metrics"
)

// run is one workflow execution. Only its goroutine sends on events.
type run struct {
	ctx    context.Context
	mode   dompipe.Mode
	events chan dompipe.Event
	logger *zap.Logger
	last   dompipe.Status
	start  time.Time
}

func (s *Service) start(ctx context.Context, mode dompipe.Mode) *run {
	return &run{
		ctx:    ctx,
		mode:   mode,
		events: make(chan dompipe.Event, s.opts.EventBuffer),
		logger: s.logger.With(zap.String("mode", string(mode))),
		start:  time.Now(),
	}
}

func (r *run) execute(body func()) {
	metrics.PipelineActive.Inc()
	defer metrics.PipelineActive.Dec()
	defer close(r.events)

	r.guard(body)

	status := string(r.last)
	if !r.last.IsTerminal() {
		status = "canceled"
		r.logger.Info("pipeline run abandoned", zap.String("stage", string(r.last)))
	}
	metrics.PipelineRunsTotal.WithLabelValues(string(r.mode), status).Inc()
}

// guard turns a panic in body into a terminal error event.
func (r *run) guard(body func()) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("pipeline panic: %v: %w", rec, domain.ErrGeneration)
			r.logger.Error("pipeline run panicked",
				zap.String("stage", string(r.last)), zap.Error(err), zap.Stack("stack"))
			r.send(dompipe.Event{Status: dompipe.StatusError, Message: msgInternalFailed + err.Error()})
		}
	}()
	body()
}

// emit sends one event. It reports false once the consumer has gone away.
func (r *run) emit(status dompipe.Status, msg string) bool {
	return r.send(dompipe.Event{Status: status, Message: msg})
}

func (r *run) send(ev dompipe.Event) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.events <- ev:
		r.last = ev.Status
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *run) fail(stage, msg string, err error) {
	r.logger.Warn("pipeline stage failed", zap.String("stage", stage), zap.Error(err))
	r.send(dompipe.Event{Status: dompipe.StatusError, Message: msg})
}

func (r *run) complete(msg string, p *dompipe.Payload) {
	if r.send(dompipe.Event{Status: dompipe.StatusCompleted, Message: msg, Payload: p}) {
		r.logger.Info("pipeline run completed", zap.Duration("duration", time.Since(r.start)))
	}
}

func timed[T any](r *run, stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.PipelineStageDuration.WithLabelValues(string(r.mode), stage).Observe(time.Since(start).Seconds())
	return v, err
}
