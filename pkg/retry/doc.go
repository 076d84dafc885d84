// Package retry provides exponential backoff and retry logic for handling
// transient failures when fetching from the source database.
//
// Features:
//   - Exponential and constant backoff strategies
//   - Jitter to avoid thundering herd problems
//   - Context support for cancellation
//   - Configurable retry predicates
//   - Integration with the pipeline's typed errors
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return pingSource(db)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
//	// Fetch-tuned retrier
//	retrier := retry.NewFetchRetrier(3, time.Second, time.Minute, logger.GetLogger())
//	err := retrier.Do(func() error {
//		batch, err = fetcher.FetchWindow(ctx, w)
//		return err
//	})
//
// Only connectivity errors are retryable. Persistence and corrupt-state
// failures return immediately so the orchestrator can stop with the
// checkpoint still marking the failed window as incomplete.
package retry
