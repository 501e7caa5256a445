// Package resilience provides the fault-tolerance primitives used on the
// replication path.
//
//   - Retry: retries a call with exponential backoff and jitter
//   - CircuitBreaker / BreakerSet: fail fast against an unhealthy peer
//   - Bulkhead: caps concurrent in-flight calls to one peer
//   - RateLimiter / KeyedRateLimiter: token buckets over golang.org/x/time/rate
//
// Outbound replication composes them per peer:
//
//	err := breaker.Execute(func() error {
//	    return bulkhead.Execute(ctx, func() error {
//	        return resilience.RetryFunc(ctx, retryCfg, send)
//	    })
//	})
package resilience
