package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"narravid/config"
	"narravid/media"
	"narravid/store"
)

// JobRunner executes one job to a terminal state. *Pipeline is the real
// implementation; tests substitute their own.
type JobRunner interface {
	Run(ctx context.Context, job *store.Job)
}

// Lister is the store slice the cleanup loop needs.
type Lister interface {
	List(limit int) ([]*store.Job, error)
}

const admissionRetries = 3

// Runner is the admission-control layer: a buffered queue feeding a
// bounded set of concurrent pipeline runs, so external ffmpeg processes
// are never spawned without a slot.
type Runner struct {
	cfg            *config.Config
	store          JobStore
	lister         Lister
	runner         JobRunner
	jobQueue       chan string
	concurrencySem chan struct{}
	resourceCheck  func() error
	admissionDelay time.Duration
}

func NewRunner(cfg *config.Config, js JobStore, lister Lister, runner JobRunner) *Runner {
	return &Runner{
		cfg:            cfg,
		store:          js,
		lister:         lister,
		runner:         runner,
		jobQueue:       make(chan string, 100), // Buffered queue
		concurrencySem: make(chan struct{}, cfg.MaxConcurrency),
		resourceCheck: func() error {
			return media.CheckResources(cfg, cfg.TempDir)
		},
		admissionDelay: 5 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	log.Println("Pipeline runner started. Concurrency limit:", r.cfg.MaxConcurrency)
	go r.workerLoop(ctx)
	go r.cleanupLoop(ctx)
}

// Enqueue hands a job id to the worker pool. Fire-and-forget: the final
// state is observable only through the job store.
func (r *Runner) Enqueue(jobID string) error {
	select {
	case r.jobQueue <- jobID:
		log.Printf("Job %s enqueued.", jobID)
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

// workerLoop pulls job ids from the queue and processes them once a
// concurrency slot frees up.
func (r *Runner) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Worker loop shutting down.")
			return
		case jobID := <-r.jobQueue:
			// Wait for a free processing slot
			r.concurrencySem <- struct{}{}
			go func(id string) {
				defer func() { <-r.concurrencySem }() // Release slot
				r.process(ctx, id)
			}(jobID)
		}
	}
}

func (r *Runner) process(parentCtx context.Context, jobID string) {
	job, err := r.store.Get(jobID)
	if err != nil {
		log.Printf("Job %s not found, dropping: %v", jobID, err)
		return
	}
	if job.Terminal() {
		log.Printf("Job %s is already terminal (%s), skipping.", jobID, job.Status)
		return
	}

	if err := r.waitForResources(parentCtx); err != nil {
		log.Printf("Job %s rejected: %v", jobID, err)
		if storeErr := r.store.Fail(jobID, err.Error()); storeErr != nil {
			log.Printf("Could not record rejection for job %s: %v", jobID, storeErr)
		}
		return
	}

	runCtx, cancel := context.WithTimeout(parentCtx, r.cfg.RunTimeout)
	defer cancel()

	log.Printf("Processing job %s", jobID)
	r.runner.Run(runCtx, job)
}

// waitForResources polls the resource gate a few times before giving up,
// so a momentarily busy host delays a job instead of failing it.
func (r *Runner) waitForResources(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < admissionRetries; attempt++ {
		if err = r.resourceCheck(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * r.admissionDelay):
		}
	}
	return fmt.Errorf("insufficient system resources: %w", err)
}

// cleanupLoop periodically removes output files of completed jobs that have
// outlived the configured local lifetime.
func (r *Runner) cleanupLoop(ctx context.Context) {
	if r.cfg.OutputLocalLifetime <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.OutputLocalLifetime / 4) // Check 4 times per lifetime
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Cleanup loop shutting down.")
			return
		case <-ticker.C:
			r.removeExpiredOutputs()
		}
	}
}

func (r *Runner) removeExpiredOutputs() {
	jobs, err := r.lister.List(1000)
	if err != nil {
		log.Printf("Cleanup: could not list jobs: %v", err)
		return
	}
	for _, job := range jobs {
		if job.Status != store.StatusCompleted || job.OutputPath == "" {
			continue
		}
		if time.Since(job.UpdatedAt) > r.cfg.OutputLocalLifetime {
			log.Printf("Cleaning up old output file: %s", job.OutputPath)
			if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
				log.Printf("Cleanup failed for %s: %v", job.OutputPath, err)
			}
		}
	}
}
