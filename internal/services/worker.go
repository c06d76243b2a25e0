package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
	"alfredoptarigan/assessment-engine/internal/repositories"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultStaleAfter   = 15 * time.Minute
	pollBatchSize       = 10
	queueCapacity       = 100
)

// Worker runs resume analyses in the background.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(applicationID uuid.UUID)
}

type WorkerOptions struct {
	Concurrency      int
	RetryMaxAttempts int
	PollInterval     time.Duration
	// StaleAfter is how long an application may sit in analyzing before the
	// poller hands it back to pending.
	StaleAfter       time.Duration
}

type worker struct {
	appRepo    repositories.ApplicationRepository
	assessment AssessmentService
	jobQueue   chan uuid.UUID
	opts       WorkerOptions
	wg         sync.WaitGroup
	stopChan   chan struct{}
	stopOnce   sync.Once
	log        *zap.Logger
}

func NewWorker(
	appRepo repositories.ApplicationRepository,
	assessment AssessmentService,
	opts WorkerOptions,
	log *zap.Logger,
) Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.RetryMaxAttempts <= 0 {
		opts.RetryMaxAttempts = 3
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	return &worker{
		appRepo:    appRepo,
		assessment: assessment,
		jobQueue:   make(chan uuid.UUID, queueCapacity),
		opts:       opts,
		stopChan:   make(chan struct{}),
		log:        logger.OrNop(log),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting resume analysis worker", zap.Int("concurrency", w.opts.Concurrency))

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("stopping resume analysis worker")
		close(w.stopChan)
	})
	w.wg.Wait()
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(applicationID uuid.UUID) {
	select {
	case w.jobQueue <- applicationID:
		w.log.Debug("resume analysis enqueued", zap.String("application_id", applicationID.String()))
	case <-w.stopChan:
		w.log.Warn("worker stopped, dropping job", zap.String("application_id", applicationID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", workerID))

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case applicationID := <-w.jobQueue:
			if err := w.assessment.AnalyzeResume(ctx, applicationID); err != nil {
				log.Error("resume analysis failed", zap.String("application_id", applicationID.String()), zap.Error(err))
				continue
			}
			log.Debug("resume analysis finished", zap.String("application_id", applicationID.String()))
		}
	}
}

// pollPendingJobs re-enqueues pending applications, including ones whose
// earlier analysis failed, until they reach the retry limit. Analyses stuck
// in analyzing longer than StaleAfter are reclaimed first.
func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reclaimStale()

			pending, err := w.appRepo.FindPendingAnalyses(pollBatchSize, w.opts.RetryMaxAttempts)
			if err != nil {
				w.log.Warn("failed to fetch pending applications", zap.Error(err))
				continue
			}

			if len(pending) > 0 {
				w.log.Info("found pending applications", zap.Int("count", len(pending)))
			}

			for _, app := range pending {
				w.EnqueueJob(app.ID)
			}
		}
	}
}

func (w *worker) reclaimStale() {
	reclaimed, err := w.appRepo.ReclaimStaleAnalyses(time.Now().Add(-w.opts.StaleAfter))
	if err != nil {
		w.log.Warn("failed to reclaim stale analyses", zap.Error(err))
		return
	}
	if reclaimed > 0 {
		w.log.Warn("reclaimed stale analyses", zap.Int64("count", reclaimed), zap.Duration("stale_after", w.opts.StaleAfter))
	}
}
