package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetplan/internal/model"

	"github.com/google/uuid"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	scenarios map[string]model.Scenario // id -> scenario
	scOrder   []string                  // insertion order
	runs      map[string]model.Run      // id -> run
	runOrder  []string
}

func NewMemory() *Memory {
	return &Memory{
		scenarios: map[string]model.Scenario{},
		runs:      map[string]model.Run{},
	}
}

func (m *Memory) CreateScenario(ctx context.Context, in model.ScenarioIn) (model.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc := model.Scenario{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Problem:     in.Problem.Clone(),
		CreatedAt:   time.Now().UTC(),
	}
	m.scenarios[sc.ID] = sc
	m.scOrder = append(m.scOrder, sc.ID)
	return sc, nil
}

func (m *Memory) GetScenario(ctx context.Context, id string) (model.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scenarios[id]
	if !ok {
		return model.Scenario{}, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return sc, nil
}

func (m *Memory) ListScenarios(ctx context.Context, cursor string, limit int) ([]model.Scenario, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := page(m.scOrder, cursor, clampLimit(limit))
	out := make([]model.Scenario, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.scenarios[id])
	}
	return out, nextCursor(ids, m.scOrder), nil
}

func (m *Memory) DeleteScenario(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenarios[id]; !ok {
		return fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	delete(m.scenarios, id)
	m.scOrder = remove(m.scOrder, id)
	// runs outlive their scenario, like ON DELETE SET NULL
	for rid, r := range m.runs {
		if r.ScenarioID == id {
			r.ScenarioID = ""
			m.runs[rid] = r
		}
	}
	return nil
}

func (m *Memory) SaveRun(ctx context.Context, run model.Run) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ScenarioID != "" {
		if _, ok := m.scenarios[run.ScenarioID]; !ok {
			return model.Run{}, fmt.Errorf("scenario %s: %w", run.ScenarioID, ErrNotFound)
		}
	}
	run.ID = uuid.New().String()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.runs[run.ID] = run
	m.runOrder = append(m.runOrder, run.ID)
	return run, nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, f RunFilter, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matching []string
	for _, id := range m.runOrder {
		if f.match(m.runs[id]) {
			matching = append(matching, id)
		}
	}
	ids := page(matching, cursor, clampLimit(limit))
	out := make([]model.Run, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.runs[id])
	}
	return out, nextCursor(ids, matching), nil
}

func (m *Memory) RunStats(ctx context.Context, scenarioID string) (model.RunStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []model.Run
	for _, id := range m.runOrder {
		if r := m.runs[id]; scenarioID == "" || r.ScenarioID == scenarioID {
			runs = append(runs, r)
		}
	}
	return summarize(runs), nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// page returns up to limit ids following cursor in order.
func page(order []string, cursor string, limit int) []string {
	start := 0
	if cursor != "" {
		for i, id := range order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(order) {
		end = len(order)
	}
	return order[start:end]
}

func nextCursor(pageIDs, all []string) string {
	if len(pageIDs) == 0 || pageIDs[len(pageIDs)-1] == all[len(all)-1] {
		return ""
	}
	return pageIDs[len(pageIDs)-1]
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
