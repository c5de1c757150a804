package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wbrandsma/partsync/internal/cache"
	"github.com/wbrandsma/partsync/internal/store"
	"github.com/wbrandsma/partsync/pkg/format"
	"github.com/wbrandsma/partsync/pkg/models"
)

const summaryCacheTTL = 10 * time.Minute

// Summary is the output of a job summarization.
type Summary struct {
	JobNumber string `json:"job_number"`
	Summary   string `json:"summary"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// Service orchestrates job summarization against an LLM provider. Summaries
// are cached per job; a sync run does not invalidate them, the TTL does.
type Service struct {
	provider Provider
	store    store.Store
	cache    cache.Cache
	timeout  time.Duration
}

func NewService(provider Provider, st store.Store, ca cache.Cache, timeout time.Duration) *Service {
	return &Service{provider: provider, store: st, cache: ca, timeout: timeout}
}

// Enabled reports whether a provider is wired up.
func (s *Service) Enabled() bool { return s.provider != nil }

// SummarizeJob produces a short operator summary for one work order.
func (s *Service) SummarizeJob(ctx context.Context, jobNumber string) (*Summary, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}

	job, err := s.store.GetJobByNumber(ctx, jobNumber)
	if err != nil {
		return nil, err
	}

	cacheKey := "assist:job:" + job.JobUID
	if s.cache != nil {
		if cached, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
			var summary Summary
			if err := json.Unmarshal(cached, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.provider.Complete(ctx, buildJobPrompt(job))
	if err != nil {
		return nil, fmt.Errorf("summarize job %s: %w", jobNumber, err)
	}

	summary := &Summary{
		JobNumber: jobNumber,
		Summary:   strings.TrimSpace(text),
		Provider:  s.provider.Name(),
		Model:     s.provider.Model(),
	}

	if s.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			_ = s.cache.Set(ctx, cacheKey, payload, summaryCacheTTL)
		}
	}
	return summary, nil
}

// buildJobPrompt flattens the job into a compact prompt. Absent fields are
// left out rather than sent as "unknown".
func buildJobPrompt(job *models.Job) string {
	var b strings.Builder
	b.WriteString("Summarize this field service work order in 2-3 sentences for a parts coordinator. ")
	b.WriteString("Focus on what parts are needed, the schedule, and anything blocking.\n\n")

	writeField := func(label string, value *string) {
		if value != nil && *value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, *value)
		}
	}
	writeTime := func(label string, value *time.Time) {
		if value != nil {
			fmt.Fprintf(&b, "%s: %s\n", label, value.Format("2006-01-02 15:04 MST"))
		}
	}

	writeField("Work order", job.JobNumber)
	writeField("Title", job.Title)
	writeField("Description", job.Description)
	if job.JobStatus != nil {
		status := format.Status(job.JobStatus)
		b.WriteString("Status: " + status + "\n")
	}
	writeField("Priority", job.Priority)
	writeField("Customer", job.CustomerName)
	writeField("Address", job.JobAddress)
	writeField("Technician", job.AssignedTechnician)
	writeTime("Scheduled start", job.ScheduledStartTime)
	writeTime("Scheduled end", job.ScheduledEndTime)
	writeField("Parts status", job.PartsStatus)
	writeTime("Parts delivered", job.PartsDeliveredDate)
	if len(job.CustomFields) > 0 && string(job.CustomFields) != "{}" {
		fmt.Fprintf(&b, "Custom fields: %s\n", job.CustomFields)
	}

	return b.String()
}
