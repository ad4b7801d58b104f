package worker

import "math"

// MaxBackoffSeconds caps the retry delay at the SQS visibility timeout limit
// we are willing to wait, one hour.
const MaxBackoffSeconds = 3600

// CalculateBackoff is the visibility delay in seconds before retry number
// retryCount. It doubles with every retry, starting at 20 seconds.
func CalculateBackoff(retryCount int) int32 {
	if retryCount < 0 {
		retryCount = 0
	}
	backoff := math.Pow(2, float64(retryCount)) * 10
	if backoff > MaxBackoffSeconds {
		return MaxBackoffSeconds
	}
	return int32(backoff)
}
