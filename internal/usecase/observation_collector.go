package usecase

import (
	"context"

	"RegimePull/internal/domain/models"
	drepo "RegimePull/internal/domain/repository"
	mid "RegimePull/internal/middleware"
)

// ObservationCollector consumes the feature stream and forwards observations.
type ObservationCollector struct {
	stream  drepo.FeatureStream
	proc    *ObservationProcessor
	metrics drepo.Metrics
	pipe    *mid.ObservationPipeline
}

// NewObservationCollector creates a new ObservationCollector instance.
func NewObservationCollector(stream drepo.FeatureStream, proc *ObservationProcessor, metrics drepo.Metrics, pipe *mid.ObservationPipeline) *ObservationCollector {
	return &ObservationCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the feature stream is connected.
func (c *ObservationCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *ObservationCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	obsCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, obsCh, errCh)
	return nil
}

// consume forwards stream observations until ctx is cancelled. The stream's
// read loop closes both channels when it dies, so a closed channel means the
// connection is gone: drain what is already buffered, reconnect, and pick up
// the fresh channels from Read.
func (c *ObservationCollector) consume(ctx context.Context, obsCh <-chan *models.FeatureObservation, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, open := <-errCh:
			if !open {
				c.drain(ctx, obsCh)
				if obsCh, errCh = c.reopen(ctx); obsCh == nil {
					return
				}
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
			}
		case obs, open := <-obsCh:
			if !open {
				if obsCh, errCh = c.reopen(ctx); obsCh == nil {
					return
				}
				continue
			}
			if obs == nil {
				continue
			}
			c.forward(ctx, obs)
		}
	}
}

func (c *ObservationCollector) forward(ctx context.Context, obs *models.FeatureObservation) {
	if c.pipe != nil {
		_ = c.pipe.Process(ctx, obs)
		return
	}
	_ = c.proc.Process(ctx, obs)
}

// drain processes observations still buffered on a closed channel.
func (c *ObservationCollector) drain(ctx context.Context, obsCh <-chan *models.FeatureObservation) {
	for obs := range obsCh {
		if obs == nil {
			continue
		}
		c.forward(ctx, obs)
	}
}

// reopen reconnects until it succeeds or ctx is cancelled, then restarts the
// stream's read loop. Reconnect sleeps its backoff internally.
func (c *ObservationCollector) reopen(ctx context.Context) (<-chan *models.FeatureObservation, <-chan error) {
	for ctx.Err() == nil {
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			continue
		}
		return c.stream.Read(ctx)
	}
	return nil, nil
}

func (c *ObservationCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying ObservationProcessor for lifecycle management.
func (c *ObservationCollector) Processor() *ObservationProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *ObservationCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
