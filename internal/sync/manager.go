package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wbrandsma/partsync/internal/cache"
	"github.com/wbrandsma/partsync/internal/store"
	"github.com/wbrandsma/partsync/internal/zuper"
	"github.com/wbrandsma/partsync/pkg/models"
)

// ErrSyncInProgress mirrors the storage-level guard so callers can treat it
// uniformly without importing store.
var ErrSyncInProgress = store.ErrSyncInProgress

// Manager drives one sync run end to end: enumerate pages, normalize each
// record, upsert survivors, and persist the outcome as a SyncRun. Record and
// page level failures are absorbed into the run's error list; only auth
// failures and an unbounded first-page failure abort a run.
type Manager struct {
	store      store.Store
	client     zuper.Client
	cache      cache.Cache
	normalizer *Normalizer
	category   string
	logger     *slog.Logger
}

func NewManager(s store.Store, c zuper.Client, ch cache.Cache, n *Normalizer, category string, logger *slog.Logger) *Manager {
	return &Manager{
		store:      s,
		client:     c,
		cache:      ch,
		normalizer: n,
		category:   category,
		logger:     logger,
	}
}

// Run executes one sync run and returns its provenance record. The returned
// SyncRun is also persisted; partial progress survives a failed run because
// every committed upsert stands on its own.
func (m *Manager) Run(ctx context.Context) (*models.SyncRun, error) {
	started := time.Now().UTC()
	runID, err := m.store.BeginSyncRun(ctx, started)
	if err != nil {
		if errors.Is(err, store.ErrSyncInProgress) {
			return nil, ErrSyncInProgress
		}
		return nil, fmt.Errorf("begin sync run: %w", err)
	}

	m.logger.Info("sync run started", "run_id", runID, "category", m.category)
	m.setCachedStatus(ctx, runID, models.SyncStatusRunning)

	counts, syncErrs, runErr := m.iterate(ctx, runID)

	status := models.SyncStatusCompleted
	if runErr != nil {
		status = models.SyncStatusFailed
		syncErrs = append(syncErrs, models.SyncError{Message: runErr.Error()})
	}

	// Finalization uses a fresh context so a canceled run is still closed out.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := m.store.FinishSyncRun(finishCtx, runID, status, counts, syncErrs); err != nil {
		m.logger.Error("failed to finalize sync run", "run_id", runID, "error", err)
		return nil, fmt.Errorf("finish sync run: %w", err)
	}
	m.setCachedStatus(finishCtx, runID, status)
	m.invalidateStats(finishCtx)

	completed := time.Now().UTC()
	run := &models.SyncRun{
		ID:          runID,
		Started:     started,
		Completed:   &completed,
		Status:      status,
		JobsFetched: counts.Fetched,
		JobsCreated: counts.Created,
		JobsUpdated: counts.Updated,
		JobsSkipped: counts.Skipped,
		Errors:      syncErrs,
	}

	m.logger.Info("sync run finished",
		"run_id", runID,
		"status", status,
		"fetched", counts.Fetched,
		"created", counts.Created,
		"updated", counts.Updated,
		"skipped", counts.Skipped,
		"errors", len(syncErrs),
		"duration", completed.Sub(started).String())

	if runErr != nil {
		return run, runErr
	}
	return run, nil
}

// iterate walks all pages and processes every record. The returned error is
// non-nil only for failures that abort the whole run.
func (m *Manager) iterate(ctx context.Context, runID int64) (store.SyncCounts, []models.SyncError, error) {
	var counts store.SyncCounts
	syncErrs := []models.SyncError{}

	it := zuper.NewPageIterator(m.client, zuper.JobFilter{Category: m.category})
	for {
		if err := ctx.Err(); err != nil {
			return counts, syncErrs, fmt.Errorf("sync canceled: %w", err)
		}

		page, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, zuper.ErrAuth) {
				return counts, syncErrs, fmt.Errorf("authentication failed: %w", err)
			}
			if !it.TotalKnown() {
				// Nothing fetched yet and no pagination metadata: there is
				// no page to skip to.
				return counts, syncErrs, fmt.Errorf("fetch page %d: %w", it.LastPage(), err)
			}
			m.logger.Warn("page skipped", "run_id", runID, "page", it.LastPage(), "error", err)
			// No record from the page was decoded, so the page counts as
			// one skipped unit.
			counts.Skipped++
			syncErrs = append(syncErrs, models.SyncError{
				Page:    it.LastPage(),
				Message: fmt.Sprintf("page skipped: %v", err),
			})
			continue
		}
		if page == nil {
			return counts, syncErrs, nil
		}

		counts.Fetched += len(page.Jobs)
		for _, raw := range page.Jobs {
			m.processRecord(ctx, raw, it.LastPage(), &counts, &syncErrs)
		}
	}
}

func (m *Manager) processRecord(ctx context.Context, raw []byte, page int, counts *store.SyncCounts, syncErrs *[]models.SyncError) {
	job, rej := m.normalizer.Normalize(raw)
	if rej != nil {
		counts.Skipped++
		// Undecodable payloads are recorded; routine filter drops are only
		// logged so one off-category page does not flood the error list.
		if rej.Reason == RejectUndecodable {
			*syncErrs = append(*syncErrs, models.SyncError{
				Page:    page,
				JobUID:  rej.JobUID,
				Message: rej.String(),
			})
		}
		m.logger.Debug("record skipped", "page", page, "job_uid", rej.JobUID, "reason", rej.Reason)
		return
	}

	outcome, err := m.store.UpsertJob(ctx, job)
	if err != nil {
		counts.Skipped++
		*syncErrs = append(*syncErrs, models.SyncError{
			Page:    page,
			JobUID:  job.JobUID,
			Message: fmt.Sprintf("upsert failed: %v", err),
		})
		m.logger.Warn("upsert failed", "page", page, "job_uid", job.JobUID, "error", err)
		return
	}

	switch outcome {
	case store.Created:
		counts.Created++
	case store.Updated:
		counts.Updated++
	}
}

func (m *Manager) setCachedStatus(ctx context.Context, runID int64, status string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.SetSyncStatus(ctx, runID, status, time.Hour); err != nil {
		m.logger.Warn("failed to cache sync status", "run_id", runID, "error", err)
	}
}

func (m *Manager) invalidateStats(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Delete(ctx, cache.StatsKey()); err != nil {
		m.logger.Warn("failed to invalidate stats cache", "error", err)
	}
}
