package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inventory-connector-service/internal/config"
	"inventory-connector-service/internal/fetcher"
	"inventory-connector-service/internal/joiner"
	"inventory-connector-service/internal/mapper"
	"inventory-connector-service/internal/models"
	"inventory-connector-service/internal/normalizer"
	"inventory-connector-service/internal/repository"
	"inventory-connector-service/internal/staging"
	"inventory-connector-service/internal/template"
)

const invalidCodeDescription = "Invalid Item Code"

// SyncService runs vendor sync jobs: it resolves the vendor's connector
// config, executes the fetch plan, normalizes and maps the response, and
// writes canonical records through the sink.
type SyncService struct {
	cfg *config.Config
	log *logrus.Logger

	catalogRepo  *repository.CatalogRepository
	sinkRepo     *repository.SinkRepository
	configLoader *ConfigLoader
	executors    *fetcher.Registry
	staging      *staging.Store

	resolver    *template.Resolver
	normalizer  *normalizer.Normalizer
	fieldMapper *mapper.FieldMapper
	classifier  *mapper.Classifier
	joiner      *joiner.Joiner

	concurrency *VendorSemaphore

	jobs       map[uuid.UUID]*models.SyncJob
	activeJobs map[uuid.UUID]context.CancelFunc
	mu         sync.RWMutex
}

// NewSyncService creates a new sync service
func NewSyncService(
	cfg *config.Config,
	log *logrus.Logger,
	catalogRepo *repository.CatalogRepository,
	sinkRepo *repository.SinkRepository,
	configLoader *ConfigLoader,
	executors *fetcher.Registry,
	stagingStore *staging.Store,
) *SyncService {
	return &SyncService{
		cfg:          cfg,
		log:          log,
		catalogRepo:  catalogRepo,
		sinkRepo:     sinkRepo,
		configLoader: configLoader,
		executors:    executors,
		staging:      stagingStore,
		resolver:     template.NewResolver(log),
		normalizer:   normalizer.New(log),
		fieldMapper:  mapper.NewFieldMapper(log),
		classifier:   mapper.NewClassifier(log),
		joiner:       joiner.New(log),
		concurrency:  NewVendorSemaphore(DefaultConcurrencyConfig()),
		jobs:         make(map[uuid.UUID]*models.SyncJob),
		activeJobs:   make(map[uuid.UUID]context.CancelFunc),
	}
}

// StartJob validates the request against the catalog and launches the sync
// in the background.
func (s *SyncService) StartJob(ctx context.Context, job *models.Job) (*models.SyncJob, error) {
	vendor, err := s.catalogRepo.GetVendor(ctx, job.VendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor %d not found: %w", job.VendorID, err)
	}

	if job.ConfigPath == "" && len(job.ConfigJSON) == 0 {
		job.ConfigPath = vendor.ConfigPath
	}
	if job.Protocol == "" {
		job.Protocol = models.Protocol(vendor.ConnectionType)
	}

	if len(job.ItemCodes) == 0 {
		codes, err := s.catalogRepo.VendorCodes(ctx, job.VendorID)
		if err != nil {
			return nil, fmt.Errorf("loading vendor codes: %w", err)
		}
		if len(codes) == 0 {
			return nil, fmt.Errorf("vendor %d has no mapped item codes", job.VendorID)
		}
		job.ItemCodes = codes
	}

	release, ok := s.concurrency.TryAcquire(job.VendorID)
	if !ok {
		if s.concurrency.VendorActive(job.VendorID) {
			return nil, fmt.Errorf("a sync job is already running for vendor %d", job.VendorID)
		}
		return nil, fmt.Errorf("concurrent job limit reached, %d jobs running", s.concurrency.ActiveJobCount())
	}

	record := &models.SyncJob{
		ID:        uuid.New(),
		VendorID:  job.VendorID,
		Protocol:  job.Protocol,
		Status:    models.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	if job.DataFilePath == "" {
		job.DataFilePath = filepath.Join(s.cfg.DataFileDir, fmt.Sprintf("vendor-%d-%s.dat", job.VendorID, record.ID))
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), s.cfg.SyncTimeout)
	s.mu.Lock()
	s.jobs[record.ID] = record
	s.activeJobs[record.ID] = cancel
	s.mu.Unlock()

	go func() {
		defer release()
		s.runJob(jobCtx, record.ID, job)
	}()

	return s.snapshot(record.ID), nil
}

// ActiveJobCount returns the number of sync jobs currently running.
func (s *SyncService) ActiveJobCount() int {
	return s.concurrency.ActiveJobCount()
}

// GetJob retrieves a sync job by id.
func (s *SyncService) GetJob(id uuid.UUID) (*models.SyncJob, error) {
	if job := s.snapshot(id); job != nil {
		return job, nil
	}
	return nil, fmt.Errorf("job %s not found", id)
}

// ListJobs returns all tracked jobs, newest first.
func (s *SyncService) ListJobs() []*models.SyncJob {
	s.mu.RLock()
	jobs := make([]*models.SyncJob, 0, len(s.jobs))
	for id := range s.jobs {
		jobs = append(jobs, s.snapshotLocked(id))
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.After(jobs[j].StartedAt)
	})
	return jobs
}

// CancelJob cancels a running sync job.
func (s *SyncService) CancelJob(id uuid.UUID) error {
	s.mu.Lock()
	cancel, active := s.activeJobs[id]
	s.mu.Unlock()

	if !active {
		return fmt.Errorf("job %s not found or not running", id)
	}
	cancel()
	return nil
}

// runJob executes the full sync pipeline for one job.
func (s *SyncService) runJob(ctx context.Context, id uuid.UUID, job *models.Job) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.activeJobs[id]; ok {
			cancel()
			delete(s.activeJobs, id)
		}
		s.mu.Unlock()
	}()

	log := s.log.WithFields(logrus.Fields{"job_id": id, "vendor_id": job.VendorID})
	log.Info("Sync started")

	summary, recordCount, err := s.execute(ctx, job, log)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Sync cancelled")
			s.finishJob(id, models.SyncStatusCancelled, "cancelled", summary, recordCount)
			return
		}
		log.WithError(err).Error("Sync failed")
		s.finishJob(id, models.SyncStatusFailed, err.Error(), summary, recordCount)
		return
	}

	log.WithFields(logrus.Fields{
		"records":        recordCount,
		"failed_batches": summary.FailedBatches,
	}).Info("Sync completed")
	s.finishJob(id, models.SyncStatusCompleted, "", summary, recordCount)
}

func (s *SyncService) execute(ctx context.Context, job *models.Job, log *logrus.Entry) (models.ExecutionSummary, int, error) {
	var summary models.ExecutionSummary

	doc, err := s.configLoader.Load(ctx, job)
	if err != nil {
		return summary, 0, err
	}

	cfg, err := s.resolver.Resolve(doc, job.TemplateValues)
	if err != nil {
		return summary, 0, err
	}

	known, err := s.catalogRepo.VendorCodes(ctx, job.VendorID)
	if err != nil {
		return summary, 0, fmt.Errorf("loading vendor codes: %w", err)
	}
	codes, unknown := filterKnownCodes(job.ItemCodes, known)
	if len(unknown) > 0 {
		log.WithField("count", len(unknown)).Warn("Dropping item codes not mapped for vendor")
		if err := s.sinkRepo.MarkInvalidCodes(ctx, job.VendorID, unknown, invalidCodeDescription); err != nil {
			log.WithError(err).Warn("Failed to mark invalid item codes")
		}
	}
	if len(codes) == 0 {
		return summary, 0, fmt.Errorf("none of the requested item codes are mapped for vendor %d", job.VendorID)
	}

	plan, err := s.resolver.BuildPlan(job, cfg, codes)
	if err != nil {
		return summary, 0, err
	}
	summary.RequestItemCodeCount = len(plan.ItemCodes)

	if len(plan.InvalidCodes) > 0 {
		log.WithField("count", len(plan.InvalidCodes)).Warn("Dropping invalid item codes")
		if err := s.sinkRepo.MarkInvalidCodes(ctx, job.VendorID, plan.InvalidCodes, invalidCodeDescription); err != nil {
			log.WithError(err).Warn("Failed to mark invalid item codes")
		}
	}

	exec, err := s.executors.ForProtocol(plan.Protocol)
	if err != nil {
		return summary, 0, err
	}

	result, execErr := exec.Execute(ctx, plan)
	if result != nil {
		if repErr := s.sinkRepo.RecordVendorResponse(context.Background(), result.Response); repErr != nil {
			log.WithError(repErr).Warn("Failed to record vendor response")
		}
	}
	if execErr != nil {
		return summary, 0, execErr
	}
	summary.FailedBatches = result.FailedBatches

	// Per-chunk item extraction already unwrapped the data list.
	dataListPath := cfg.DataListPath
	if cfg.ItemsResponse != "" {
		dataListPath = ""
	}
	items := s.normalizer.Normalize(result.Documents, dataListPath, plan.SingleItem)
	summary.ResponseItemCodeCount = len(items)

	if s.staging != nil && len(items) > 0 {
		if _, err := s.staging.Write(job.VendorID, items); err != nil {
			log.WithError(err).Warn("Failed to stage normalized items")
		}
	}

	now := time.Now()
	canonical := s.fieldMapper.Map(items, cfg, plan.ItemCodes, now)
	statuses := s.classifier.Classify(items, cfg, plan.ItemCodes)

	codeToInternal, err := s.catalogRepo.VendorCodeToInternalIDs(ctx, job.VendorID)
	if err != nil {
		return summary, 0, fmt.Errorf("loading vendor code mappings: %w", err)
	}

	records := s.joiner.Join(canonical, job.VendorID, codeToInternal, statuses, plan.ItemCodes)
	if err := s.sinkRepo.UpsertRecords(ctx, records); err != nil {
		return summary, len(records), fmt.Errorf("writing inventory records: %w", err)
	}

	statusRows := s.joiner.ExpandStatuses(statuses, job.VendorID, codeToInternal)
	if err := s.sinkRepo.UpsertVendorCodeStatuses(ctx, statusRows, now); err != nil {
		return summary, len(records), fmt.Errorf("writing vendor code statuses: %w", err)
	}

	if err := s.sinkRepo.TouchLastFetch(context.Background(), job.VendorID, now); err != nil {
		log.WithError(err).Warn("Failed to update vendor last fetch date")
	}

	return summary, len(records), nil
}

// filterKnownCodes splits the requested codes into those mapped for the
// vendor in the catalog and those unknown to it. Comparison is
// case-insensitive, matching how the catalog stores vendor codes.
func filterKnownCodes(requested, known []string) (valid, unknown []string) {
	set := make(map[string]struct{}, len(known))
	for _, c := range known {
		set[strings.ToLower(c)] = struct{}{}
	}
	for _, c := range requested {
		if _, ok := set[strings.ToLower(c)]; ok {
			valid = append(valid, c)
		} else {
			unknown = append(unknown, c)
		}
	}
	return valid, unknown
}

func (s *SyncService) finishJob(id uuid.UUID, status models.SyncJobStatus, errText string, summary models.ExecutionSummary, recordCount int) {
	now := time.Now()
	s.mu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.Status = status
		job.Error = errText
		job.Summary = summary
		job.RecordCount = recordCount
		job.FinishedAt = &now
	}
	s.mu.Unlock()
}

func (s *SyncService) snapshot(id uuid.UUID) *models.SyncJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(id)
}

func (s *SyncService) snapshotLocked(id uuid.UUID) *models.SyncJob {
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}
