package content

import (
	"context"
	"fmt"
	"time"

	"autored/internal/imagepool"
	"autored/pkg/config"
	errs "autored/pkg/errors"
	"autored/pkg/logger"
	"autored/pkg/ratelimit"
	"autored/pkg/storage"
)

// MaxImages is the most images one post may carry
const MaxImages = 6

// ImageGenerator renders a post's images and saves them to disk
type ImageGenerator struct {
	backend     ImageBackend
	store       *storage.Manager
	concurrency int
	limiter     ratelimit.Limiter
	log         logger.Logger
	now         func() time.Time
}

// NewImageGenerator creates a generator writing into store
func NewImageGenerator(backend ImageBackend, store *storage.Manager, concurrency int, log logger.Logger) *ImageGenerator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &ImageGenerator{
		backend:     backend,
		store:       store,
		concurrency: concurrency,
		limiter:     ratelimit.Unlimited{},
		log:         log.WithField("component", "images"),
		now:         time.Now,
	}
}

// Generate renders count images for prompt and returns their absolute paths
// in order. Any failed image fails the whole batch.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string, count int) ([]string, error) {
	if count < 1 || count > MaxImages {
		return nil, errs.InvalidRequest(fmt.Sprintf("image count must be between 1 and %d, got %d", MaxImages, count))
	}
	if prompt == "" {
		return nil, errs.InvalidRequest("image prompt must not be empty")
	}

	workers := g.concurrency
	if workers > count {
		workers = count
	}
	pool := imagepool.NewWorkerPool(ctx, workers, g.backend, g.store, g.limiter, g.log)
	pool.Start()

	stamp := g.now().Format("20060102_150405")
	go func() {
		defer pool.Stop()
		for i := 0; i < count; i++ {
			job := imagepool.RenderJob{
				Index:    i,
				Prompt:   prompt,
				BaseName: fmt.Sprintf("generated_%s_%d", stamp, i+1),
			}
			if err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	paths := make([]string, count)
	var firstErr error
	for result := range pool.Results() {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = result.Error
				pool.Abort()
			}
			continue
		}
		paths[result.Job.Index] = result.Path
	}

	if firstErr == nil {
		if err := ctx.Err(); err != nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		if errs.IsType(firstErr, errs.ErrorTypeContentGeneration) {
			return nil, firstErr
		}
		return nil, errs.ContentGeneration("image generation", firstErr)
	}
	for i, p := range paths {
		if p == "" {
			return nil, errs.ContentGeneration(fmt.Sprintf("image %d was not produced", i+1), nil)
		}
	}

	g.log.InfoWithFields("images generated", map[string]interface{}{
		"count": count,
		"dir":   g.store.GetOutputDir(),
	})
	return paths, nil
}

// New builds the text producer and image backend selected by cfg
func New(cfg config.GenerationConfig, log logger.Logger) (TextProducer, ImageBackend, error) {
	client := NewClient(cfg.Timeout, log)
	client.SetLimiter(ratelimit.PerMinute(cfg.RequestsPerMinute))
	client.SetRetry(cfg.MaxRetries+1, nil)

	var text TextProducer
	switch cfg.TextProvider {
	case "gemini":
		text = NewGemini(client, cfg)
	case "cloudflare":
		text = NewCloudflare(client, cfg)
	default:
		return nil, nil, fmt.Errorf("unknown text provider %q", cfg.TextProvider)
	}

	var images ImageBackend
	switch cfg.ImageProvider {
	case "imagen":
		images = NewImagen(client, cfg)
	case "cloudflare":
		images = NewCloudflare(client, cfg)
	default:
		return nil, nil, fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
	}
	return text, images, nil
}
