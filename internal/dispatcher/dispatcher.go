// Package dispatcher accepts scan submissions and runs the queue consumers.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

// Runner consumes the queue until ctx is done.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher is the producer side of the scan queue and owns the consumers.
type Dispatcher struct {
	queue   leads.Queue
	runners []Runner
	logger  *zap.Logger
}

// New creates a Dispatcher.
func New(queue leads.Queue, runners []Runner, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		runners: runners,
		logger:  logger,
	}
}

// Run starts all runners and blocks until the context finishes and every
// runner has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, r := range d.runners {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			r.Run(ctx)
		}(r)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit validates req, enqueues it and returns the request as queued. It
// does not wait for the scan.
func (d *Dispatcher) Submit(ctx context.Context, req leads.ScanRequest) (leads.ScanRequest, error) {
	req.City = strings.TrimSpace(req.City)
	req.Keyword = strings.TrimSpace(req.Keyword)
	if req.City == "" || req.Keyword == "" {
		return leads.ScanRequest{}, fmt.Errorf("city and keyword are required: %w", leads.ErrInvalidInput)
	}
	if req.URLs == nil {
		req.URLs = []string{}
	}
	if err := d.queue.Enqueue(ctx, req); err != nil {
		return leads.ScanRequest{}, fmt.Errorf("queue enqueue: %w", err)
	}
	d.logger.Info("scan queued",
		zap.String("city", req.City),
		zap.String("keyword", req.Keyword),
		zap.Int("url_count", len(req.URLs)),
		zap.String("mode", req.Mode()),
	)
	return req, nil
}
