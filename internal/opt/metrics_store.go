package opt

import "sync"

type resultKey struct {
	Scenario string
	Algo     string
}

var (
	mu     sync.Mutex
	latest = map[resultKey]Result{}
)

// RecordResult keeps r as the most recent result of its algorithm for scenario.
func RecordResult(scenario string, r Result) {
	mu.Lock()
	latest[resultKey{Scenario: scenario, Algo: r.Algorithm}] = r
	mu.Unlock()
}

// LatestResults returns the most recent result per algorithm for scenario.
func LatestResults(scenario string) map[string]Result {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]Result{}
	for k, v := range latest {
		if k.Scenario == scenario {
			out[k.Algo] = v
		}
	}
	return out
}

// ForgetResults drops every cached result for scenario.
func ForgetResults(scenario string) {
	mu.Lock()
	defer mu.Unlock()
	for k := range latest {
		if k.Scenario == scenario {
			delete(latest, k)
		}
	}
}
