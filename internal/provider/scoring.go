package provider

import (
	"time"

	"github.com/mikeoller82/agentic-core/pkg/core"
)

// score implements the tie-breaking formula from the routing design:
//
//	score = success_rate*100 - max(0, avg_response_time-2.0)*10
//	        + recency_bonus - error_rate*50
//
// recency_bonus is +10 if the last request was within an hour of now,
// -5 if beyond 24 hours, 0 otherwise.
func score(m core.ProviderMetrics, now time.Time) float64 {
	s := m.SuccessRate()*100 - maxf(0, m.AvgResponseTime().Seconds()-2.0)*10 - m.ErrorRate()*50
	if !m.LastRequestAt.IsZero() {
		age := now.Sub(m.LastRequestAt)
		switch {
		case age <= time.Hour:
			s += 10
		case age > 24*time.Hour:
			s -= 5
		}
	}
	return s
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
