package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"elevate/internal/judge/client"
	"elevate/internal/judge/model"
	"elevate/internal/judge/repository"
	appErr "elevate/pkg/errors"
	"elevate/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxConcurrent = 5
	defaultQueueCapacity = 1024
)

// Executor runs one submission against the upstream judge.
// Implementations must be total: failures come back as failed outcomes.
type Executor interface {
	Execute(ctx context.Context, in client.ExecuteInput) model.Outcome
}

// SchedulerConfig holds queue settings and per-submission defaults.
type SchedulerConfig struct {
	MaxConcurrent int `yaml:"maxConcurrent"`
	QueueCapacity int `yaml:"queueCapacity"`

	DefaultCPUTimeLimit float64       `yaml:"defaultCPUTimeLimit"`
	DefaultMemoryLimit  int           `yaml:"defaultMemoryLimit"`
	DefaultMaxRetries   int           `yaml:"defaultMaxRetries"`
	DefaultRetryDelay   time.Duration `yaml:"defaultRetryDelay"`
}

// Scheduler accepts submissions and drains them in FIFO order through
// a fixed pool of workers. The pool size is the concurrency ceiling:
// at most MaxConcurrent executions are in flight against the upstream
// judge at any instant.
type Scheduler struct {
	store    *repository.SubmissionStore
	executor Executor
	cfg      SchedulerConfig

	jobs chan string
	quit chan struct{}
	wg   sync.WaitGroup

	execCtx    context.Context
	execCancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewScheduler creates a scheduler. Call Start before submitting.
func NewScheduler(store *repository.SubmissionStore, executor Executor, cfg SchedulerConfig) (*Scheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("submission store is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}

	execCtx, execCancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:      store,
		executor:   executor,
		cfg:        cfg,
		jobs:       make(chan string, cfg.QueueCapacity),
		quit:       make(chan struct{}),
		execCtx:    execCtx,
		execCancel: execCancel,
	}, nil
}

// Start launches the worker pool.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		for i := 0; i < s.cfg.MaxConcurrent; i++ {
			s.wg.Add(1)
			go s.worker()
		}
	})
}

// Stop shuts the pool down: no new jobs are picked up, in-flight jobs
// finish unless the context expires first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		close(s.quit)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.execCancel()
			<-done
		}
		s.execCancel()
	})
}

// CreateParams describe one submission request. Zero-valued optional
// fields take the scheduler defaults.
type CreateParams struct {
	Language     string
	SourceCode   string
	Stdin        string
	CPUTimeLimit float64
	MemoryLimit  int
	MaxRetries   int
	RetryDelay   time.Duration
	Metadata     map[string]interface{}
}

// CreateSubmission registers a submission and enqueues it. It returns
// the just-created record immediately and never blocks on execution.
// A full queue rejects the request with JudgeQueueFull.
func (s *Scheduler) CreateSubmission(params CreateParams) (*model.Submission, error) {
	submission := s.buildSubmission(params)
	s.store.Create(submission)

	select {
	case s.jobs <- submission.ID:
	default:
		s.store.Remove(submission.ID)
		return nil, appErr.New(appErr.JudgeQueueFull)
	}

	logger.Debug(context.Background(), "submission queued",
		zap.String("submission_id", submission.ID),
		zap.String("language", submission.Language),
	)
	return submission, nil
}

// GetSubmission looks a submission up by id. Pure read, no side effects.
func (s *Scheduler) GetSubmission(id string) (*model.Submission, bool) {
	return s.store.Get(id)
}

func (s *Scheduler) buildSubmission(params CreateParams) *model.Submission {
	cpuTimeLimit := params.CPUTimeLimit
	if cpuTimeLimit <= 0 {
		cpuTimeLimit = s.cfg.DefaultCPUTimeLimit
	}
	memoryLimit := params.MemoryLimit
	if memoryLimit <= 0 {
		memoryLimit = s.cfg.DefaultMemoryLimit
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.cfg.DefaultMaxRetries
	}
	retryDelay := params.RetryDelay
	if retryDelay <= 0 {
		retryDelay = s.cfg.DefaultRetryDelay
	}
	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	now := time.Now()
	return &model.Submission{
		ID:           uuid.NewString(),
		Language:     params.Language,
		SourceCode:   params.SourceCode,
		Stdin:        params.Stdin,
		CPUTimeLimit: cpuTimeLimit,
		MemoryLimit:  memoryLimit,
		MaxRetries:   maxRetries,
		RetryDelay:   retryDelay,
		Metadata:     metadata,
		Status:       model.StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case id := <-s.jobs:
			s.run(id)
		}
	}
}

func (s *Scheduler) run(id string) {
	submission, ok := s.store.Get(id)
	if !ok {
		// Evicted between enqueue and dispatch; move on.
		logger.Warn(context.Background(), "queued submission missing from store",
			zap.String("submission_id", id))
		return
	}
	if !s.store.MarkProcessing(id) {
		return
	}

	outcome, err := s.safeExecute(submission)
	if err != nil {
		s.store.FailDispatch(id, err.Error())
		logger.Error(context.Background(), "submission dispatch failed",
			zap.String("submission_id", id), zap.Error(err))
		return
	}

	s.store.Finish(id, outcome)
	logger.Info(context.Background(), "submission finished",
		zap.String("submission_id", id),
		zap.Bool("success", outcome.Success),
		zap.String("judge_status", outcome.Status),
		zap.Int64("execution_ms", outcome.ExecutionTime),
	)
}

// safeExecute contains dispatch failures: a panic inside the executor
// is recovered and reported as an error, never crashing the pool.
func (s *Scheduler) safeExecute(submission *model.Submission) (outcome model.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("judge dispatch panic: %v", r)
		}
	}()

	outcome = s.executor.Execute(s.execCtx, client.ExecuteInput{
		Language:     submission.Language,
		Code:         submission.SourceCode,
		Input:        submission.Stdin,
		CPUTimeLimit: submission.CPUTimeLimit,
		MemoryLimit:  submission.MemoryLimit,
		MaxRetries:   submission.MaxRetries,
		RetryDelay:   submission.RetryDelay,
	})
	return outcome, nil
}
