package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when pending records could not be
	// written within the drain timeout.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

var drainTimeout = 30 * time.Second

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []models.Record) error
	Close() error
	Validate() error
}

// Exporter streams accepted records to an OutputWriter in batches. A single
// worker writes, so records reach the writer in the order they were
// processed.
type Exporter struct {
	ctx       context.Context
	writer    OutputWriter
	recordCh  chan models.Record
	batchSize int

	done     chan struct{}
	startOne sync.Once

	statsMu sync.Mutex
	written int
	batches int

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewExporter builds an exporter sized from cfg.
func NewExporter(ctx context.Context, writer OutputWriter, cfg *config.Config) *Exporter {
	if ctx == nil {
		ctx = context.Background()
	}
	buffer := cfg.PipelineBufferSize
	if buffer <= 0 {
		buffer = 256
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	return &Exporter{
		ctx:       ctx,
		writer:    writer,
		recordCh:  make(chan models.Record, buffer),
		batchSize: batch,
		done:      make(chan struct{}),
		shutdown:  make(chan struct{}),
	}
}

// Start launches the writer goroutine. Further calls are no-ops.
func (p *Exporter) Start() {
	p.startOne.Do(func() {
		go p.worker()
	})
}

// Accept implements Sink.
func (p *Exporter) Accept(records []models.Record) error {
	return p.Process(records...)
}

// Process enqueues records for writing.
func (p *Exporter) Process(records ...models.Record) error {
	if len(records) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, rec := range records {
		if err := p.enqueue(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting records and waits up to the drain timeout for
// pending ones to be written. The writer itself stays open.
func (p *Exporter) Close() error {
	p.Start()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.closeOnce.Do(func() {
		close(p.recordCh)
	})

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-p.done:
	case <-timer.C:
		p.signalShutdown()
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}

	p.signalShutdown()
	return p.Err()
}

// Err returns the first error encountered during writing.
func (p *Exporter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Written returns the number of records handed to the writer.
func (p *Exporter) Written() int {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.written
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Exporter) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.statsMu.Lock()
				written, batches := p.written, p.batches
				p.statsMu.Unlock()
				slog.Info("export progress",
					slog.Int("written", written),
					slog.Int("batches", batches),
					slog.Int("queued", len(p.recordCh)),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Exporter) worker() {
	defer close(p.done)

	batch := make([]models.Record, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		p.statsMu.Lock()
		p.written += len(batch)
		p.batches++
		p.statsMu.Unlock()
		batch = batch[:0]
		return nil
	}

	for rec := range p.recordCh {
		batch = append(batch, rec)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Exporter) enqueue(rec models.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.recordCh <- rec:
		return nil
	}
}

func (p *Exporter) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
}

func (p *Exporter) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Exporter) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}
