package api

import (
	"context"
	"net/http"
	"strings"

	"fleetplan/internal/config"
	"fleetplan/internal/metrics"
	"fleetplan/internal/opt"
	"fleetplan/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Server struct {
	Store   store.Store
	Broker  EventBroker
	Limiter *RateLimiter
	Cfg     config.Config

	// solver defaults applied before per-request overrides
	CSP     opt.CSPOptions
	Genetic opt.GeneticOptions
}

// NewServer creates a Server. If DatabaseURL is unset, uses in-memory store;
// if RedisURL is unset or unreachable, uses the in-process broker.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := sp.MigrateDir(cfg.MigrationsDir); err != nil {
				return nil, err
			}
			log.Info().Str("dir", cfg.MigrationsDir).Msg("db migrated")
		}
		s = sp
	}

	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err == nil {
			err = rb.Ping(context.Background())
		}
		if err != nil {
			log.Warn().Err(err).Msg("redis broker unavailable, using in-process broker")
		} else {
			broker = rb
		}
	}

	return &Server{
		Store:   s,
		Broker:  broker,
		Limiter: NewRateLimiter(RateLimiterConfig{RPS: rate.Limit(cfg.RateRPS), Burst: cfg.RateBurst}),
		Cfg:     cfg,
		CSP: opt.CSPOptions{
			MaxDeliveries: cfg.CSPMaxDeliveries,
			TimeLimit:     cfg.CSPTimeLimit,
		},
		Genetic: opt.GeneticOptions{
			PopulationSize: cfg.GAPopulation,
			Generations:    cfg.GAGenerations,
			Seed:           cfg.GASeed,
		},
	}, nil
}

// Handler returns the routed service with access logging and metrics.
func (s *Server) Handler() http.Handler {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	// Scenarios
	mux.HandleFunc("/v1/scenarios", s.ScenariosHandler)
	mux.HandleFunc("/v1/scenarios/", s.ScenarioByIDHandler) // includes /zones

	// Solving
	mux.HandleFunc("/v1/solve", s.Limiter.Limit(s.SolveHandler))
	mux.HandleFunc("/v1/compare", s.Limiter.Limit(s.CompareHandler))

	// Runs
	mux.HandleFunc("/v1/runs", s.RunsIndexHandler)
	mux.HandleFunc("/v1/runs/ws", s.RunsWSHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /analysis
	mux.HandleFunc("/v1/admin/runs/stats", s.RunStatsHandler)

	// Health and introspection
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/debug/vars", s.DebugJSON)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return accessLog(mux)
}

// Close releases background resources.
func (s *Server) Close() {
	s.Limiter.Stop()
	if c, ok := s.Store.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
