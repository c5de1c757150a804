package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wbrandsma/partsync/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrSyncInProgress is returned by BeginSyncRun when another run is still
// in the running state. The guard lives in the database (a partial unique
// index), not in process memory, so it holds across instances.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// UpsertOutcome classifies what an upsert did to the row.
type UpsertOutcome string

const (
	Created UpsertOutcome = "created"
	Updated UpsertOutcome = "updated"
)

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// UpsertJob inserts or updates a job keyed on job_uid as a single
	// atomic statement, refreshing last_synced.
	UpsertJob(ctx context.Context, job *models.Job) (UpsertOutcome, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	GetJobByNumber(ctx context.Context, jobNumber string) (*models.Job, error)
	GetJobByUID(ctx context.Context, jobUID string) (*models.Job, error)
	GetJobsByNumbers(ctx context.Context, jobNumbers []string) ([]*models.Job, error)
	JobStatistics(ctx context.Context) (*models.JobStatistics, error)

	BeginSyncRun(ctx context.Context, started time.Time) (int64, error)
	FinishSyncRun(ctx context.Context, id int64, status string, counts SyncCounts, syncErrs []models.SyncError) error
	ListSyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// JobFilter restricts and pages the jobs listing. The configured category
// and geographic bounds are always applied on top of these.
type JobFilter struct {
	Statuses []string
	Search   string
	Page     int
	Limit    int
}

// SyncCounts are the per-run counters persisted on a finished SyncRun.
type SyncCounts struct {
	Fetched int
	Created int
	Updated int
	Skipped int
}
