package loadexec

// retryExceedsCap reports whether nextRetryCount would exceed
// maxRetries, gating whether a retryable job goes back to new_jobs or is
// killed to failed_jobs instead. maxRetries == 0 means unbounded.
func retryExceedsCap(nextRetryCount uint32, maxRetries uint32) bool {
	return maxRetries > 0 && nextRetryCount > maxRetries
}
