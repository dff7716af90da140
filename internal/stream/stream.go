// Package stream bridges the synchronous research pipeline to
// streaming transports. The conductor runs a pipeline on a worker
// goroutine and forwards its updates, in order, over a channel the
// transport drains; a static mode runs to completion and returns the
// final report directly.
package stream

import (
	"context"

	"go.uber.org/zap"

	"github.com/researchd/researchd/internal/pipeline"
	"github.com/researchd/researchd/pkg/logger"
)

// eventBuffer bounds the producer-to-consumer queue. The worker blocks
// when the transport falls this far behind, which is the backpressure
// discipline: updates are small and the provider calls between them
// dominate, so the buffer rarely fills.
const eventBuffer = 64

// Runner is the pipeline surface the conductor drives.
type Runner interface {
	Run(ctx context.Context, query string, sink pipeline.Sink) error
}

// Conductor exposes streaming and static entry points over one
// pipeline. It is stateless and safe for concurrent use; each call
// owns its own pipeline state.
type Conductor struct {
	runner Runner
}

// NewConductor creates a conductor over the given pipeline.
func NewConductor(runner Runner) *Conductor {
	return &Conductor{runner: runner}
}

// Stream runs the pipeline on a worker goroutine and returns a channel
// of progress updates in emission order. The channel is closed after
// the terminal update: either the pipeline's own Complete event, or an
// error event with Complete=true when the run fails. Canceling the
// context stops the worker at its next suspension point.
func (c *Conductor) Stream(ctx context.Context, query string) <-chan pipeline.Update {
	events := make(chan pipeline.Update, eventBuffer)

	go func() {
		defer close(events)

		emit := func(u pipeline.Update) {
			select {
			case events <- u:
			case <-ctx.Done():
			}
		}

		if err := c.runner.Run(ctx, query, pipeline.Sink(emit)); err != nil {
			logger.Error("pipeline run failed", zap.String("query", query), zap.Error(err))
			emit(pipeline.Update{Error: err.Error(), Complete: true})
		}
	}()

	return events
}

// Run executes the pipeline to completion and returns the final report
// text and its citations. Intermediate updates are logged only.
func (c *Conductor) Run(ctx context.Context, query string) (string, []string, error) {
	var finalReport string
	var citations []string

	err := c.runner.Run(ctx, query, func(u pipeline.Update) {
		if u.Complete {
			finalReport = u.FinalReport
			citations = u.Citations
			return
		}
		logger.Debug("pipeline update", zap.String("steps", u.IntermediateSteps))
	})
	if err != nil {
		return "", nil, err
	}
	return finalReport, citations, nil
}
