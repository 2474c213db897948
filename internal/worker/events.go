package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

const snapshotContentType = "text/html; charset=utf-8"

// ScanEvent is published after every persisted LeadScore.
type ScanEvent struct {
	City       string    `json:"city"`
	Keyword    string    `json:"keyword"`
	WebsiteID  int64     `json:"websiteId"`
	BusinessID int64     `json:"businessId"`
	Domain     string    `json:"domain"`
	Score      int       `json:"score"`
	ComputedAt time.Time `json:"computedAt"`
}

// snapshot stores the audited homepage body. Failures are logged only.
func (w *Worker) snapshot(ctx context.Context, result leads.SiteAuditResult) {
	if w.snapshots == nil || result.HTML == "" {
		return
	}
	path := snapshotPath(w.cfg.SnapshotPrefix, result.Host, result.HTML)
	uri, err := w.snapshots.PutObject(ctx, path, snapshotContentType, strings.NewReader(result.HTML))
	if err != nil {
		w.logger.Warn("snapshot failed", zap.String("host", result.Host), zap.Error(err))
		return
	}
	w.logger.Debug("snapshot stored", zap.String("host", result.Host), zap.String("uri", uri))
}

func snapshotPath(prefix, host, body string) string {
	sum := sha256.Sum256([]byte(body))
	name := hex.EncodeToString(sum[:]) + ".html"
	if host == "" {
		host = "unknown"
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return host + "/" + name
	}
	return prefix + "/" + host + "/" + name
}

// publish emits a ScanEvent. Failures are logged only.
func (w *Worker) publish(ctx context.Context, req leads.ScanRequest, website leads.Website, score leads.LeadScore) {
	if w.publisher == nil || w.cfg.EventTopic == "" {
		return
	}
	event := ScanEvent{
		City:       req.City,
		Keyword:    req.Keyword,
		WebsiteID:  website.ID,
		BusinessID: website.BusinessID,
		Domain:     website.Domain,
		Score:      score.Score,
		ComputedAt: score.ComputedAt,
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.EventTopic, event); err != nil {
		w.logger.Warn("publish scan event failed",
			zap.String("topic", w.cfg.EventTopic),
			zap.String("domain", website.Domain),
			zap.Error(err),
		)
	}
}
