package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fleetplan/internal/model"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir in lexical order. Statements
// are expected to be idempotent.
func (p *Postgres) MigrateDir(dir string) error {
	files, err := migrationFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		body, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(body)); err != nil {
			return fmt.Errorf("migrate %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

func migrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (p *Postgres) CreateScenario(ctx context.Context, in model.ScenarioIn) (model.Scenario, error) {
	body, err := json.Marshal(in.Problem)
	if err != nil {
		return model.Scenario{}, err
	}
	sc := model.Scenario{ID: uuid.New().String(), Name: in.Name, Description: in.Description, Problem: in.Problem}
	err = p.db.QueryRowContext(ctx, `INSERT INTO scenarios (id, name, description, problem) VALUES ($1,$2,$3,$4::jsonb) RETURNING created_at`,
		sc.ID, sc.Name, nullIfEmpty(sc.Description), string(body)).Scan(&sc.CreatedAt)
	if err != nil {
		return model.Scenario{}, err
	}
	return sc, nil
}

func (p *Postgres) GetScenario(ctx context.Context, id string) (model.Scenario, error) {
	if !validID(id) {
		return model.Scenario{}, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	row := p.db.QueryRowContext(ctx, `SELECT id::text, name, description, problem, created_at FROM scenarios WHERE id=$1`, id)
	sc, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Scenario{}, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return sc, err
}

func (p *Postgres) ListScenarios(ctx context.Context, cursor string, limit int) ([]model.Scenario, string, error) {
	limit = clampLimit(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, name, description, problem, created_at FROM scenarios WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, name, description, problem, created_at FROM scenarios ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Scenario{}
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) DeleteScenario(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return nil
}

func (p *Postgres) SaveRun(ctx context.Context, run model.Run) (model.Run, error) {
	if run.ScenarioID != "" && !validID(run.ScenarioID) {
		return model.Run{}, fmt.Errorf("scenario %s: %w", run.ScenarioID, ErrNotFound)
	}
	prob, err := json.Marshal(run.Problem)
	if err != nil {
		return model.Run{}, err
	}
	res, err := json.Marshal(run.Result)
	if err != nil {
		return model.Run{}, err
	}
	run.ID = uuid.New().String()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	r := run.Result
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, scenario_id, batch_id, algorithm, problem, result, completed, total_distance, energy, exec_ms, timed_out, created_at)
        VALUES ($1,$2,$3,$4,$5::jsonb,$6::jsonb,$7,$8,$9,$10,$11,$12)`,
		run.ID, nullIfEmpty(run.ScenarioID), nullIfEmpty(run.BatchID), run.Algorithm, string(prob), string(res),
		r.CompletedDeliveries, r.TotalDistance, r.EnergyConsumption, r.ExecutionTimeMs, r.TimedOut, run.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "runs_scenario_id_fkey") {
			return model.Run{}, fmt.Errorf("scenario %s: %w", run.ScenarioID, ErrNotFound)
		}
		return model.Run{}, err
	}
	return run, nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	if !validID(id) {
		return model.Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, f RunFilter, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	where, args := runWhere(f, cursor)
	args = append(args, limit)
	q := fmt.Sprintf(`SELECT %s FROM runs%s ORDER BY id LIMIT $%d`, runColumns, where, len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) RunStats(ctx context.Context, scenarioID string) (model.RunStats, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT algorithm, COUNT(*), COALESCE(AVG(completed),0), COALESCE(AVG(total_distance),0),
        COALESCE(AVG(energy),0), COALESCE(AVG(exec_ms),0), COALESCE(SUM(CASE WHEN timed_out THEN 1 ELSE 0 END),0)
        FROM runs WHERE ($1 = '' OR scenario_id::text = $1) GROUP BY algorithm`, scenarioID)
	if err != nil {
		return model.RunStats{}, err
	}
	defer rows.Close()
	st := model.RunStats{ByAlgorithm: map[string]model.AlgoStats{}}
	for rows.Next() {
		var algo string
		var a model.AlgoStats
		if err := rows.Scan(&algo, &a.Runs, &a.AvgCompleted, &a.AvgDistance, &a.AvgEnergy, &a.AvgExecutionMs, &a.TimedOut); err != nil {
			return model.RunStats{}, err
		}
		st.ByAlgorithm[algo] = a
		st.Runs += a.Runs
	}
	return st, rows.Err()
}

const runColumns = `id::text, COALESCE(scenario_id::text,''), COALESCE(batch_id,''), algorithm, problem, result, created_at`

// runWhere builds the WHERE clause for ListRuns; placeholders start at $1.
func runWhere(f RunFilter, cursor string) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ScenarioID != "" {
		add("scenario_id::text = $%d", f.ScenarioID)
	}
	if f.BatchID != "" {
		add("batch_id = $%d", f.BatchID)
	}
	if f.Algorithm != "" {
		add("algorithm = $%d", f.Algorithm)
	}
	if cursor != "" {
		add("id::text > $%d", cursor)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface{ Scan(dest ...any) error }

func scanScenario(s scanner) (model.Scenario, error) {
	var sc model.Scenario
	var desc sql.NullString
	var prob []byte
	if err := s.Scan(&sc.ID, &sc.Name, &desc, &prob, &sc.CreatedAt); err != nil {
		return model.Scenario{}, err
	}
	sc.Description = desc.String
	if err := json.Unmarshal(prob, &sc.Problem); err != nil {
		return model.Scenario{}, fmt.Errorf("scenario %s: decode problem: %w", sc.ID, err)
	}
	return sc, nil
}

func scanRun(s scanner) (model.Run, error) {
	var r model.Run
	var prob, res []byte
	if err := s.Scan(&r.ID, &r.ScenarioID, &r.BatchID, &r.Algorithm, &prob, &res, &r.CreatedAt); err != nil {
		return model.Run{}, err
	}
	if err := json.Unmarshal(prob, &r.Problem); err != nil {
		return model.Run{}, fmt.Errorf("run %s: decode problem: %w", r.ID, err)
	}
	if err := json.Unmarshal(res, &r.Result); err != nil {
		return model.Run{}, fmt.Errorf("run %s: decode result: %w", r.ID, err)
	}
	return r, nil
}

// validID rejects ids that would make the uuid cast fail server-side.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
