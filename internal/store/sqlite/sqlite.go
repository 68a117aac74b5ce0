package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/store"
	"github.com/botbridge/routecore/internal/store/model"
)

// ErrNotFound is returned when a requested config object does not exist.
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Tags() store.TagRepository {
	return &tagRepo{db: r.executor}
}

func (r *SqliteRepository) Strategies() store.StrategyRepository {
	return &strategyRepo{db: r.executor}
}

func (r *SqliteRepository) Chains() store.ChainRepository {
	return &chainRepo{db: r.executor}
}

func (r *SqliteRepository) Models() store.ModelRepository {
	return &modelRepo{db: r.executor}
}

type tagRepo struct {
	db DB
}

func (r *tagRepo) Get(ctx context.Context, id string) (*domain.CapabilityTag, error) {
	var row model.CapabilityTag
	err := r.db.GetContext(ctx, &row, `SELECT * FROM capability_tags WHERE id = ?`, id)
	if err != nil {
		return nil, wrapGet("capability tag", id, err)
	}
	return row.ToDomain()
}

func (r *tagRepo) List(ctx context.Context) ([]domain.CapabilityTag, error) {
	var rows []model.CapabilityTag
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM capability_tags ORDER BY id`); err != nil {
		return nil, err
	}
	tags := make([]domain.CapabilityTag, 0, len(rows))
	for i := range rows {
		t, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	return tags, nil
}

func (r *tagRepo) Upsert(ctx context.Context, tag *domain.CapabilityTag) error {
	row, err := model.TagFromDomain(tag, time.Now().UTC())
	if err != nil {
		return err
	}
	query := `
	INSERT INTO capability_tags (
		id, category, priority, required_protocol, required_models, required_skills,
		extended_thinking, cache_control, vision, max_cost_per_mtok, builtin,
		created_at, updated_at)
	VALUES (
		:id, :category, :priority, :required_protocol, :required_models, :required_skills,
		:extended_thinking, :cache_control, :vision, :max_cost_per_mtok, :builtin,
		:created_at, :updated_at)
	ON CONFLICT(id) DO UPDATE SET
		category = excluded.category,
		priority = excluded.priority,
		required_protocol = excluded.required_protocol,
		required_models = excluded.required_models,
		required_skills = excluded.required_skills,
		extended_thinking = excluded.extended_thinking,
		cache_control = excluded.cache_control,
		vision = excluded.vision,
		max_cost_per_mtok = excluded.max_cost_per_mtok,
		builtin = excluded.builtin,
		updated_at = excluded.updated_at`
	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}

func (r *tagRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM capability_tags WHERE id = ? AND builtin = 0`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "capability tag", id)
}

type strategyRepo struct {
	db DB
}

func (r *strategyRepo) Get(ctx context.Context, id string) (*domain.CostStrategy, error) {
	var row model.CostStrategy
	err := r.db.GetContext(ctx, &row, `SELECT * FROM cost_strategies WHERE id = ?`, id)
	if err != nil {
		return nil, wrapGet("cost strategy", id, err)
	}
	return row.ToDomain()
}

func (r *strategyRepo) List(ctx context.Context) ([]domain.CostStrategy, error) {
	var rows []model.CostStrategy
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM cost_strategies ORDER BY id`); err != nil {
		return nil, err
	}
	strategies := make([]domain.CostStrategy, 0, len(rows))
	for i := range rows {
		s, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *s)
	}
	return strategies, nil
}

func (r *strategyRepo) Upsert(ctx context.Context, strategy *domain.CostStrategy) error {
	row, err := model.StrategyFromDomain(strategy, time.Now().UTC())
	if err != nil {
		return err
	}
	query := `
	INSERT INTO cost_strategies (
		id, cost_weight, performance_weight, capability_weight,
		max_cost_per_request, max_latency_ms, min_capability_score,
		scenario_weights, created_at, updated_at)
	VALUES (
		:id, :cost_weight, :performance_weight, :capability_weight,
		:max_cost_per_request, :max_latency_ms, :min_capability_score,
		:scenario_weights, :created_at, :updated_at)
	ON CONFLICT(id) DO UPDATE SET
		cost_weight = excluded.cost_weight,
		performance_weight = excluded.performance_weight,
		capability_weight = excluded.capability_weight,
		max_cost_per_request = excluded.max_cost_per_request,
		max_latency_ms = excluded.max_latency_ms,
		min_capability_score = excluded.min_capability_score,
		scenario_weights = excluded.scenario_weights,
		updated_at = excluded.updated_at`
	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}

func (r *strategyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cost_strategies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "cost strategy", id)
}

type chainRepo struct {
	db DB
}

func (r *chainRepo) Get(ctx context.Context, id string) (*domain.FallbackChain, error) {
	var row model.FallbackChain
	err := r.db.GetContext(ctx, &row, `SELECT * FROM fallback_chains WHERE id = ?`, id)
	if err != nil {
		return nil, wrapGet("fallback chain", id, err)
	}
	return row.ToDomain()
}

func (r *chainRepo) List(ctx context.Context) ([]domain.FallbackChain, error) {
	var rows []model.FallbackChain
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM fallback_chains ORDER BY id`); err != nil {
		return nil, err
	}
	chains := make([]domain.FallbackChain, 0, len(rows))
	for i := range rows {
		c, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		chains = append(chains, *c)
	}
	return chains, nil
}

func (r *chainRepo) Upsert(ctx context.Context, chain *domain.FallbackChain) error {
	row, err := model.ChainFromDomain(chain, time.Now().UTC())
	if err != nil {
		return err
	}
	query := `
	INSERT INTO fallback_chains (
		id, steps, trigger_status_codes, trigger_error_types,
		trigger_timeout_ms, max_retries, retry_delay_ms, preserve_protocol,
		created_at, updated_at)
	VALUES (
		:id, :steps, :trigger_status_codes, :trigger_error_types,
		:trigger_timeout_ms, :max_retries, :retry_delay_ms, :preserve_protocol,
		:created_at, :updated_at)
	ON CONFLICT(id) DO UPDATE SET
		steps = excluded.steps,
		trigger_status_codes = excluded.trigger_status_codes,
		trigger_error_types = excluded.trigger_error_types,
		trigger_timeout_ms = excluded.trigger_timeout_ms,
		max_retries = excluded.max_retries,
		retry_delay_ms = excluded.retry_delay_ms,
		preserve_protocol = excluded.preserve_protocol,
		updated_at = excluded.updated_at`
	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}

func (r *chainRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fallback_chains WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "fallback chain", id)
}

type modelRepo struct {
	db DB
}

func (r *modelRepo) ListEnabled(ctx context.Context) ([]domain.Candidate, error) {
	var rows []model.CatalogModel
	query := `SELECT * FROM catalog_models WHERE is_enabled = 1 ORDER BY vendor, model`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	catalog := make([]domain.Candidate, 0, len(rows))
	for i := range rows {
		c, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, *c)
	}
	return catalog, nil
}

func (r *modelRepo) Upsert(ctx context.Context, c *domain.Candidate) error {
	row, err := model.CatalogModelFromDomain(c, time.Now().UTC())
	if err != nil {
		return err
	}
	query := `
	INSERT INTO catalog_models (
		vendor, model, protocol, credential_id, skills,
		extended_thinking, cache_control, vision,
		input_cost_per_mtok, output_cost_per_mtok, avg_latency_ms,
		capability_score, scenario_ratings, is_enabled,
		created_at, updated_at)
	VALUES (
		:vendor, :model, :protocol, :credential_id, :skills,
		:extended_thinking, :cache_control, :vision,
		:input_cost_per_mtok, :output_cost_per_mtok, :avg_latency_ms,
		:capability_score, :scenario_ratings, :is_enabled,
		:created_at, :updated_at)
	ON CONFLICT(vendor, model) DO UPDATE SET
		protocol = excluded.protocol,
		credential_id = excluded.credential_id,
		skills = excluded.skills,
		extended_thinking = excluded.extended_thinking,
		cache_control = excluded.cache_control,
		vision = excluded.vision,
		input_cost_per_mtok = excluded.input_cost_per_mtok,
		output_cost_per_mtok = excluded.output_cost_per_mtok,
		avg_latency_ms = excluded.avg_latency_ms,
		capability_score = excluded.capability_score,
		scenario_ratings = excluded.scenario_ratings,
		is_enabled = excluded.is_enabled,
		updated_at = excluded.updated_at`
	_, err = r.db.NamedExecContext(ctx, query, row)
	return err
}

func (r *modelRepo) SetEnabled(ctx context.Context, vendor, modelID string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE catalog_models SET is_enabled = ?, updated_at = ? WHERE vendor = ? AND model = ?`,
		enabled, time.Now().UTC(), vendor, modelID)
	if err != nil {
		return err
	}
	return requireAffected(res, "catalog model", vendor+"/"+modelID)
}

func (r *modelRepo) Delete(ctx context.Context, vendor, modelID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM catalog_models WHERE vendor = ? AND model = ?`, vendor, modelID)
	if err != nil {
		return err
	}
	return requireAffected(res, "catalog model", vendor+"/"+modelID)
}

func wrapGet(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return err
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}
