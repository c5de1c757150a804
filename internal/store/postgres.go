package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wbrandsma/partsync/internal/geo"
	"github.com/wbrandsma/partsync/pkg/models"
)

const jobColumns = `job_uid, job_number, title, description, job_status, job_category, priority,
	customer_name, customer_uid, job_address, latitude, longitude,
	assigned_technician, technician_uid,
	scheduled_start_time, scheduled_end_time, actual_start_time, actual_end_time,
	created_time, modified_time, parts_status, parts_delivered_date,
	custom_fields, tags, last_synced`

// PostgresStore implements the Store interface using pgx/v5. Job reads are
// pinned to the configured category and bounding box so the query layer and
// the sync pipeline cannot drift apart on what "in region" means.
type PostgresStore struct {
	pool     *pgxpool.Pool
	category string
	bounds   geo.Bounds
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, category string, bounds geo.Bounds) *PostgresStore {
	return &PostgresStore{pool: pool, category: category, bounds: bounds}
}

var _ Store = (*PostgresStore)(nil)

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) UpsertJob(ctx context.Context, job *models.Job) (UpsertOutcome, error) {
	customFields := job.CustomFields
	if len(customFields) == 0 {
		customFields = []byte("{}")
	}
	tags := job.Tags
	if len(tags) == 0 {
		tags = []byte("[]")
	}

	// xmax = 0 only for freshly inserted rows, which is how the outcome is
	// classified without a separate existence check.
	var inserted bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (job_uid, job_number, title, description, job_status, job_category, priority,
		   customer_name, customer_uid, job_address, latitude, longitude,
		   assigned_technician, technician_uid,
		   scheduled_start_time, scheduled_end_time, actual_start_time, actual_end_time,
		   created_time, modified_time, parts_status, parts_delivered_date,
		   custom_fields, tags, last_synced)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		   $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, NOW())
		 ON CONFLICT (job_uid) DO UPDATE SET
		   job_number = EXCLUDED.job_number,
		   title = EXCLUDED.title,
		   description = EXCLUDED.description,
		   job_status = EXCLUDED.job_status,
		   job_category = EXCLUDED.job_category,
		   priority = EXCLUDED.priority,
		   customer_name = EXCLUDED.customer_name,
		   customer_uid = EXCLUDED.customer_uid,
		   job_address = EXCLUDED.job_address,
		   latitude = EXCLUDED.latitude,
		   longitude = EXCLUDED.longitude,
		   assigned_technician = EXCLUDED.assigned_technician,
		   technician_uid = EXCLUDED.technician_uid,
		   scheduled_start_time = EXCLUDED.scheduled_start_time,
		   scheduled_end_time = EXCLUDED.scheduled_end_time,
		   actual_start_time = EXCLUDED.actual_start_time,
		   actual_end_time = EXCLUDED.actual_end_time,
		   created_time = EXCLUDED.created_time,
		   modified_time = EXCLUDED.modified_time,
		   parts_status = EXCLUDED.parts_status,
		   parts_delivered_date = EXCLUDED.parts_delivered_date,
		   custom_fields = EXCLUDED.custom_fields,
		   tags = EXCLUDED.tags,
		   last_synced = NOW()
		 RETURNING (xmax = 0)`,
		job.JobUID, job.JobNumber, job.Title, job.Description, job.JobStatus, job.JobCategory,
		job.Priority, job.CustomerName, job.CustomerUID, job.JobAddress, job.Latitude, job.Longitude,
		job.AssignedTechnician, job.TechnicianUID,
		job.ScheduledStartTime, job.ScheduledEndTime, job.ActualStartTime, job.ActualEndTime,
		job.CreatedTime, job.ModifiedTime, job.PartsStatus, job.PartsDeliveredDate,
		customFields, tags,
	).Scan(&inserted)
	if err != nil {
		if isDuplicateKeyError(err) {
			return "", ErrDuplicateKey
		}
		return "", fmt.Errorf("upsert job: %w", err)
	}

	if inserted {
		return Created, nil
	}
	return Updated, nil
}

// regionConditions returns the category+bounds WHERE conditions starting at
// placeholder $1 and the matching args.
func (s *PostgresStore) regionConditions() ([]string, []any) {
	conditions := []string{
		"job_category = $1",
		"latitude BETWEEN $2 AND $3",
		"longitude BETWEEN $4 AND $5",
	}
	args := []any{s.category, s.bounds.MinLat, s.bounds.MaxLat, s.bounds.MinLon, s.bounds.MaxLon}
	return conditions, args
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error) {
	conditions, args := s.regionConditions()
	argIdx := len(args) + 1

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("job_status = ANY($%d)", argIdx))
		args = append(args, filter.Statuses)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(job_number ILIKE $%d OR title ILIKE $%d OR customer_name ILIKE $%d OR job_address ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM jobs WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM jobs WHERE %s
		 ORDER BY scheduled_start_time DESC NULLS LAST LIMIT $%d OFFSET $%d`,
		jobColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, rows.Err()
}

func (s *PostgresStore) GetJobByNumber(ctx context.Context, jobNumber string) (*models.Job, error) {
	conditions, args := s.regionConditions()
	args = append(args, jobNumber)
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE %s AND job_number = $6`,
		jobColumns, strings.Join(conditions, " AND "))

	job, err := scanJobRow(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job by number: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) GetJobByUID(ctx context.Context, jobUID string) (*models.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE job_uid = $1`, jobColumns)

	job, err := scanJobRow(s.pool.QueryRow(ctx, query, jobUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job by uid: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) GetJobsByNumbers(ctx context.Context, jobNumbers []string) ([]*models.Job, error) {
	if len(jobNumbers) == 0 {
		return []*models.Job{}, nil
	}

	conditions, args := s.regionConditions()
	args = append(args, jobNumbers)
	query := fmt.Sprintf(
		`SELECT %s FROM jobs WHERE %s AND job_number = ANY($6)
		 ORDER BY scheduled_start_time DESC NULLS LAST`,
		jobColumns, strings.Join(conditions, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get jobs by numbers: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) JobStatistics(ctx context.Context) (*models.JobStatistics, error) {
	conditions, args := s.regionConditions()
	where := strings.Join(conditions, " AND ")

	stats := &models.JobStatistics{StatusCounts: map[string]int{}}
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COUNT(*),
		   COUNT(DISTINCT job_status),
		   COUNT(*) FILTER (WHERE parts_delivered_date IS NOT NULL),
		   COUNT(*) FILTER (WHERE parts_delivered_date IS NULL),
		   MIN(scheduled_start_time),
		   MAX(scheduled_start_time),
		   MAX(last_synced)
		 FROM jobs WHERE %s`, where), args...,
	).Scan(&stats.TotalJobs, &stats.UniqueStatuses, &stats.PartsDeliveredCount,
		&stats.PartsPendingCount, &stats.EarliestScheduled, &stats.LatestScheduled,
		&stats.LastSyncTime)
	if err != nil {
		return nil, fmt.Errorf("job statistics: %w", err)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT job_status, COUNT(*) FROM jobs
		 WHERE %s AND job_status IS NOT NULL
		 GROUP BY job_status ORDER BY COUNT(*) DESC`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.StatusCounts[status] = count
	}
	return stats, rows.Err()
}

// --- Sync runs ---

func (s *PostgresStore) BeginSyncRun(ctx context.Context, started time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sync_runs (started, status) VALUES ($1, 'running') RETURNING id`,
		started,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, ErrSyncInProgress
		}
		return 0, fmt.Errorf("begin sync run: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) FinishSyncRun(ctx context.Context, id int64, status string, counts SyncCounts, syncErrs []models.SyncError) error {
	if status != models.SyncStatusCompleted && status != models.SyncStatusFailed {
		return fmt.Errorf("invalid terminal sync status %q", status)
	}
	if syncErrs == nil {
		syncErrs = []models.SyncError{}
	}
	errsJSON, err := json.Marshal(syncErrs)
	if err != nil {
		return fmt.Errorf("marshal sync errors: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET
		   completed = NOW(), status = $2,
		   jobs_fetched = $3, jobs_created = $4, jobs_updated = $5, jobs_skipped = $6,
		   errors = $7
		 WHERE id = $1 AND status = 'running'`,
		id, status, counts.Fetched, counts.Created, counts.Updated, counts.Skipped, errsJSON)
	if err != nil {
		return fmt.Errorf("finish sync run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSyncRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, started, completed, status, jobs_fetched, jobs_created, jobs_updated, jobs_skipped, errors, notes
		 FROM sync_runs ORDER BY started DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		var errsJSON []byte
		if err := rows.Scan(&r.ID, &r.Started, &r.Completed, &r.Status,
			&r.JobsFetched, &r.JobsCreated, &r.JobsUpdated, &r.JobsSkipped,
			&errsJSON, &r.Notes); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		if err := json.Unmarshal(errsJSON, &r.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal sync errors: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.JobUID, &j.JobNumber, &j.Title, &j.Description, &j.JobStatus,
		&j.JobCategory, &j.Priority, &j.CustomerName, &j.CustomerUID, &j.JobAddress,
		&j.Latitude, &j.Longitude, &j.AssignedTechnician, &j.TechnicianUID,
		&j.ScheduledStartTime, &j.ScheduledEndTime, &j.ActualStartTime, &j.ActualEndTime,
		&j.CreatedTime, &j.ModifiedTime, &j.PartsStatus, &j.PartsDeliveredDate,
		&j.CustomFields, &j.Tags, &j.LastSynced)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func scanJobRow(row pgx.Row) (*models.Job, error) {
	return scanJob(row)
}

func scanJobs(rows pgx.Rows) ([]*models.Job, error) {
	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
