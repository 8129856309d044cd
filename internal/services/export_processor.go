package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sweeper exports whatever history entries are still pending.
type Sweeper interface {
	ProcessPending(ctx context.Context) (int, error)
}

// ExportProcessorConfig holds configuration for the export sweep
type ExportProcessorConfig struct {
	// PollInterval is how often to look for entries whose message was lost (default: 1m)
	PollInterval time.Duration
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{PollInterval: time.Minute}
}

// ExportProcessor periodically sweeps unexported history entries. It backs
// up the AMQP path, which can drop messages when the broker is down.
type ExportProcessor struct {
	sweeper Sweeper
	config  ExportProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(sweeper Sweeper, config ExportProcessorConfig) *ExportProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultExportProcessorConfig().PollInterval
	}
	return &ExportProcessor{sweeper: sweeper, config: config}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for it or for ctx.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.sweep(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *ExportProcessor) sweep(ctx context.Context) {
	n, err := p.sweeper.ProcessPending(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Export sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Export sweep completed", "exported", n)
	}
}
