package loop

import "fmt"

// refinementAppendixThreshold is the iteration count after which the
// refined context gains the "consider alternative approaches" appendix
// (spec 4.7: "after 5 iterations").
const refinementAppendixThreshold = 5

// refine produces the next Think step's context string from the current
// one and the failed iteration's feedback, per spec 4.7's refine step.
func refine(priorContext, feedback string, iteration int) string {
	next := priorContext
	if feedback != "" {
		next = fmt.Sprintf("%s | Previous feedback: %s", priorContext, feedback)
	}
	if iteration+1 > refinementAppendixThreshold {
		next = fmt.Sprintf("%s | Note: iteration %d, consider alternative approaches.", next, iteration+1)
	}
	return next
}
