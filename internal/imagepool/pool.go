package imagepool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"autored/pkg/logger"
	"autored/pkg/ratelimit"
)

// RenderJob represents a single image to generate
type RenderJob struct {
	// Index is the position of the image in the post
	Index    int
	Prompt   string
	BaseName string
}

// RenderResult represents the result of a render job
type RenderResult struct {
	Job      RenderJob
	Path     string
	Success  bool
	Error    error
	Duration time.Duration
	Size     int
}

// Renderer turns a prompt into encoded image bytes
type Renderer interface {
	Render(ctx context.Context, prompt string) ([]byte, error)
}

// ImageStorage stores rendered images
type ImageStorage interface {
	Exists(name string) bool
	SaveImage(r io.Reader, name string) (string, error)
}

// WorkerPool manages concurrent render workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan RenderJob
	resultQueue chan RenderResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	renderer    Renderer
	storage     ImageStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a new render worker pool bound to ctx
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	renderer Renderer,
	storage ImageStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan RenderJob, numWorkers*2),
		resultQueue: make(chan RenderResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		renderer:    renderer,
		storage:     storage,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting render pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
	wp.logger.Debug("render pool stopped")
}

// Abort cancels in-flight jobs; Stop must still be called
func (wp *WorkerPool) Abort() {
	wp.cancel()
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job RenderJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("render pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel
func (wp *WorkerPool) Results() <-chan RenderResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		result := wp.processJob(job, id)

		// Results are always delivered so the consumer can account for every
		// submitted job, even after cancellation.
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) processJob(job RenderJob, workerID int) RenderResult {
	start := time.Now()
	result := RenderResult{Job: job}

	if err := wp.ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	wp.logger.DebugWithFields("rendering image", map[string]interface{}{
		"worker_id": workerID,
		"index":     job.Index,
	})

	data, err := wp.renderer.Render(wp.ctx, job.Prompt)
	if err != nil {
		result.Error = fmt.Errorf("render failed: %w", err)
		result.Duration = time.Since(start)
		wp.logger.ErrorWithFields("image render failed", map[string]interface{}{
			"worker_id": workerID,
			"index":     job.Index,
			"error":     err.Error(),
			"duration":  result.Duration,
		})
		return result
	}
	result.Size = len(data)

	name := job.BaseName + Extension(data)
	path, err := wp.storage.SaveImage(bytes.NewReader(data), name)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		wp.logger.ErrorWithFields("image save failed", map[string]interface{}{
			"worker_id": workerID,
			"name":      name,
			"error":     err.Error(),
		})
		return result
	}

	result.Path = path
	result.Success = true
	result.Duration = time.Since(start)

	wp.logger.DebugWithFields("image rendered", map[string]interface{}{
		"worker_id": workerID,
		"index":     job.Index,
		"path":      path,
		"size":      result.Size,
		"duration":  result.Duration,
	})
	return result
}

// Extension picks a file extension from the image bytes
func Extension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
