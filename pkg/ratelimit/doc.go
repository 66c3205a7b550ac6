// Package ratelimit throttles outgoing generative API requests.
//
// The free tiers of the text and image APIs are quota'd per minute, so the
// content client waits on a sliding-window limiter before every request:
//
//	limiter := ratelimit.PerMinute(cfg.Generation.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
