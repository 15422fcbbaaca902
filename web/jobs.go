package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/exporter"
	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/status"
)

type JobState string

const (
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

type Job struct {
	ID       uuid.UUID  `json:"id"`
	Resource string     `json:"resource"`
	Output   string     `json:"output"`
	State    JobState   `json:"state"`
	Progress float32    `json:"progress"`
	Message  string     `json:"message,omitempty"`
	Error    string     `json:"error,omitempty"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished,omitempty"`

	cancel context.CancelFunc
}

// JobManager runs exports in background, one goroutine per job.
type JobManager struct {
	exporter *exporter.Exporter

	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
	wg   sync.WaitGroup
}

func NewJobManager(e *exporter.Exporter) *JobManager {
	return &JobManager{
		exporter: e,
		jobs:     make(map[uuid.UUID]*Job),
	}
}

// Start begins export of resource into output path and returns job snapshot.
func (jm *JobManager) Start(resource, output string) Job {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:       uuid.New(),
		Resource: resource,
		Output:   output,
		State:    JobRunning,
		Started:  time.Now(),
		cancel:   cancel,
	}

	jm.mu.Lock()
	jm.jobs[job.ID] = job
	snapshot := *job
	jm.mu.Unlock()

	// every job gets own progress callback
	e := *jm.exporter
	e.Progress = func(progress float32, msg string) {
		jm.mu.Lock()
		job.Progress = progress
		job.Message = msg
		jm.mu.Unlock()
		status.Progress(progress, "[%s] %s", resource, msg)
	}

	jm.wg.Add(1)
	go func() {
		defer jm.wg.Done()
		defer cancel()
		status.Info("Exporting %s", resource)
		err := e.Export(ctx, resource, output)

		jm.mu.Lock()
		now := time.Now()
		job.Finished = &now
		switch {
		case err == nil:
			job.State = JobDone
			job.Progress = 1
		case ctx.Err() != nil:
			job.State = JobCancelled
			job.Error = err.Error()
		default:
			job.State = JobFailed
			job.Error = err.Error()
		}
		state := job.State
		jm.mu.Unlock()

		if err != nil {
			logger.Error("Export failed", zap.String("resource", resource), zap.Error(err))
			status.Error("Export of %s %s: %v", resource, state, err)
		} else {
			status.Info("Exported %s", resource)
		}
	}()
	return snapshot
}

func (jm *JobManager) Get(id uuid.UUID) (Job, bool) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	job, ok := jm.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (jm *JobManager) List() []Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	result := make([]Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		result = append(result, *job)
	}
	return result
}

// Cancel stops running job, false when there is no such job.
func (jm *JobManager) Cancel(id uuid.UUID) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	job, ok := jm.jobs[id]
	if ok {
		job.cancel()
	}
	return ok
}

// Wait blocks until all started jobs are finished.
func (jm *JobManager) Wait() {
	jm.wg.Wait()
}
