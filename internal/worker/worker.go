// Package worker drains scan requests: it resolves target URLs, audits each
// site and upserts the business, website and score records.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/metrics"
)

// Config controls optional worker side effects.
type Config struct {
	// SnapshotPrefix roots homepage snapshots in the blob store.
	SnapshotPrefix string
	// EventTopic receives one event per persisted score.
	EventTopic string
}

// Report summarizes one processed request.
type Report struct {
	URLs      int
	Persisted int
	Failed    int
}

// Worker consumes scan requests and executes the audit pipeline.
type Worker struct {
	queue      leads.Queue
	discoverer leads.Discoverer
	auditor    leads.Auditor
	store      leads.Store
	snapshots  leads.BlobStore
	publisher  leads.Publisher
	clock      leads.Clock
	cfg        Config
	logger     *zap.Logger
	locks      *keyedMutex
}

// New constructs a Worker. snapshots and publisher are optional.
func New(
	queue leads.Queue,
	discoverer leads.Discoverer,
	auditor leads.Auditor,
	store leads.Store,
	snapshots leads.BlobStore,
	publisher leads.Publisher,
	clock leads.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:      queue,
		discoverer: discoverer,
		auditor:    auditor,
		store:      store,
		snapshots:  snapshots,
		publisher:  publisher,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
		locks:      newKeyedMutex(),
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed. Failed requests are logged and never stop the loop.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("scan worker started")
	defer w.logger.Info("scan worker stopped")
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, leads.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		if depth, ok := w.queue.(interface{ Len() int }); ok {
			metrics.SetQueueDepth(depth.Len())
		}
		w.handle(ctx, req)
	}
}

func (w *Worker) handle(ctx context.Context, req leads.ScanRequest) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveScan(metrics.OutcomeFailure)
			w.logger.Error("scan request panicked",
				zap.String("city", req.City),
				zap.String("keyword", req.Keyword),
				zap.Any("panic", r),
			)
		}
	}()

	report, err := w.Process(ctx, req)
	switch {
	case err != nil:
		metrics.ObserveScan(metrics.OutcomeFailure)
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("scan request failed",
			zap.String("city", req.City),
			zap.String("keyword", req.Keyword),
			zap.Error(err),
		)
	case report.URLs == 0:
		metrics.ObserveScan(metrics.OutcomeEmpty)
	default:
		metrics.ObserveScan(metrics.OutcomeSuccess)
	}
}

// Process runs one request to completion. Each URL is audited and persisted
// before the next one starts. A failed audit skips its URL; a persistence
// failure or cancellation aborts the request.
func (w *Worker) Process(ctx context.Context, req leads.ScanRequest) (Report, error) {
	logger := w.logger.With(zap.String("city", req.City), zap.String("keyword", req.Keyword))

	urls, candidates, err := w.resolve(ctx, req)
	if err != nil {
		return Report{}, err
	}
	if len(urls) == 0 {
		logger.Info("no urls resolved")
		return Report{}, nil
	}
	logger.Info("urls resolved", zap.Int("count", len(urls)), zap.String("mode", req.Mode()))

	report := Report{URLs: len(urls)}
	for _, raw := range urls {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result, err := w.auditor.Audit(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			logger.Warn("audit failed", zap.String("url", raw), zap.Error(err))
			continue
		}

		candidate, hasCandidate := candidates[strings.ToLower(raw)]
		var cand *leads.DiscoveryCandidate
		if hasCandidate {
			cand = &candidate
		}
		website, score, err := w.upsert(ctx, req, result, cand)
		if err != nil {
			return report, err
		}
		report.Persisted++
		metrics.ObserveLeadScore(score.Score)
		logger.Debug("lead scored",
			zap.String("domain", website.Domain),
			zap.Int64("website_id", website.ID),
			zap.Int("score", score.Score),
		)

		w.snapshot(ctx, result)
		w.publish(ctx, req, website, score)
	}
	return report, nil
}

// resolve returns the URLs to audit plus discovery candidates keyed by their
// lowercased website URL.
func (w *Worker) resolve(
	ctx context.Context,
	req leads.ScanRequest,
) ([]string, map[string]leads.DiscoveryCandidate, error) {
	if len(req.URLs) > 0 {
		return distinctTrimmed(req.URLs), nil, nil
	}
	if w.discoverer == nil {
		return nil, nil, nil
	}

	found, err := w.discoverer.Discover(ctx, req.City, req.Keyword)
	if err != nil {
		return nil, nil, fmt.Errorf("discover %s/%s: %w", req.City, req.Keyword, err)
	}
	candidates := make(map[string]leads.DiscoveryCandidate, len(found))
	raw := make([]string, 0, len(found))
	for _, c := range found {
		if strings.TrimSpace(c.WebsiteURL) == "" {
			continue
		}
		raw = append(raw, c.WebsiteURL)
		key := strings.ToLower(strings.TrimSpace(c.WebsiteURL))
		if _, ok := candidates[key]; !ok {
			candidates[key] = c
		}
	}
	urls := distinctTrimmed(raw)
	w.logger.Info("discovered candidate sites",
		zap.String("city", req.City),
		zap.String("keyword", req.Keyword),
		zap.Int("count", len(urls)),
	)
	return urls, candidates, nil
}

func distinctTrimmed(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
