package api

import (
	"net/http"
	"time"

	"fleetplan/internal/buildinfo"
)

// DebugJSON reports build info and the non-secret parts of the config.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":               s.Cfg.Port,
			"ENVIRONMENT":        s.Cfg.Environment,
			"RATE_RPS":           s.Cfg.RateRPS,
			"RATE_BURST":         s.Cfg.RateBurst,
			"CSP_TIME_LIMIT":     s.Cfg.CSPTimeLimit.String(),
			"CSP_MAX_DELIVERIES": s.Cfg.CSPMaxDeliveries,
			"GA_POPULATION":      s.Cfg.GAPopulation,
			"GA_GENERATIONS":     s.Cfg.GAGenerations,
			"HAS_DATABASE_URL":   s.Cfg.DatabaseURL != "",
			"HAS_REDIS_URL":      s.Cfg.RedisURL != "",
		},
	})
}
