// Package retry provides backoff and retry logic for the generative API
// clients.
//
// Browser flows never go through this package: a login or publish timeout
// is final for the run. Only errors classified as network, rate limit or
// server errors are retried by default.
//
//	text, err := retry.DoWithResult(ctx, func(ctx context.Context) (string, error) {
//		return gemini.generate(ctx, prompt)
//	}, &retry.Config{MaxAttempts: 3, Logger: log})
//
// When Config.Backoff is nil the delay is picked by error class, with rate
// limits waiting the longest.
package retry
