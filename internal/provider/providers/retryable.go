package providers

import "strings"

// isRetryableMessage classifies a raw backend error message as
// retryable, grounded on the teacher's isRetryableError/ClassifyError
// substring checks shared across its OpenAI/Google adapters.
func isRetryableMessage(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, needle := range []string{
		"rate limit", "429", "500", "502", "503", "504",
		"timeout", "deadline exceeded", "connection reset",
	} {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
